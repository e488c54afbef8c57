package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cdts/execution/internal/config"
	"github.com/cdts/execution/internal/costs"
	"github.com/cdts/execution/internal/health"
	"github.com/cdts/execution/internal/marketdata"
	"github.com/cdts/execution/internal/router"
	"github.com/cdts/execution/internal/strategies/arbitrage"
	"github.com/cdts/execution/internal/venue"
	"github.com/cdts/execution/pkg/bus"
	"github.com/cdts/execution/pkg/types"
	binancevenue "github.com/cdts/execution/services/binance"
)

type RoutingService struct {
	cfg       *config.Config
	bus       *bus.Client
	monitor   *health.Monitor
	geo       *venue.GeoBlockRegistry
	router    *router.SmartOrderRouter
	spread    *arbitrage.SpreadDivergenceDetector
	funding   *arbitrage.FundingCarryDetector
	agg       *marketdata.Aggregator
	converter *marketdata.CrossRateConverter

	symbols  []types.Pair
	venues   []string
	interval time.Duration

	fundingMu    sync.Mutex
	fundingSnaps []types.FundingSnapshot

	doneC chan struct{}
	wg    sync.WaitGroup
}

func main() {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	rawSymbols := strings.Split(os.Getenv("SYMBOLS"), ",")
	if len(rawSymbols) == 0 || rawSymbols[0] == "" {
		rawSymbols = []string{"BTC-USDT", "ETH-USDT", "SOL-USDT"}
	}

	interval := 10 * time.Second
	if raw := os.Getenv("SCAN_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			interval = d
		}
	}

	service, err := NewRoutingService(natsURL, rawSymbols, interval)
	if err != nil {
		log.Fatalf("Failed to create routing service: %v", err)
	}

	service.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down routing service...")
	service.Stop()
}

func NewRoutingService(natsURL string, rawSymbols []string, interval time.Duration) (*RoutingService, error) {
	cfg := config.Load()

	var symbols []types.Pair
	for _, raw := range rawSymbols {
		parts := strings.SplitN(strings.TrimSpace(raw), "-", 2)
		if len(parts) != 2 {
			log.Printf("Skipping malformed symbol %q", raw)
			continue
		}
		pair, err := types.ParsePair(parts[0], parts[1])
		if err != nil {
			log.Printf("Skipping symbol %q: %v", raw, err)
			continue
		}
		symbols = append(symbols, pair)
	}

	geo := venue.NewGeoBlockRegistry()
	monitor := health.NewMonitor()

	binanceClient := binancevenue.NewVenue(
		os.Getenv("BINANCE_API_KEY"),
		os.Getenv("BINANCE_API_SECRET"),
		os.Getenv("BINANCE_TESTNET") == "true",
	)
	clients := []types.VenueClient{
		venue.NewResilientClient(binanceClient, geo),
	}

	agg := marketdata.NewAggregator(clients, monitor, geo)
	model := costs.NewModel(cfg)
	smartRouter := router.NewSmartOrderRouter(agg, monitor, geo, model, cfg, clients)
	converter := marketdata.NewCrossRateConverter(agg, agg.VenueNames(), clients[0])

	busClient, err := bus.Connect(natsURL, "routing-service")
	if err != nil {
		return nil, err
	}

	return &RoutingService{
		cfg:       cfg,
		bus:       busClient,
		monitor:   monitor,
		geo:       geo,
		router:    smartRouter,
		spread:    arbitrage.NewSpreadDivergenceDetector(arbitrage.DefaultSpreadConfig()),
		funding:   arbitrage.NewFundingCarryDetector(arbitrage.FundingConfig{MinCarryBps: cfg.FundingMinCarryBps, MinBasisStability: cfg.FundingMinBasisStability}),
		agg:       agg,
		converter: converter,
		symbols:   symbols,
		venues:    agg.VenueNames(),
		interval:  interval,
		doneC:     make(chan struct{}),
	}, nil
}

func (s *RoutingService) Start() {
	log.Printf("Starting routing service for %d symbols across venues %v", len(s.symbols), s.venues)

	if _, err := s.bus.SubscribeFundingSnapshots(s.recordFundingSnapshot); err != nil {
		log.Printf("Funding snapshot subscription failed: %v", err)
	}

	s.wg.Add(1)
	go s.scanLoop()
}

func (s *RoutingService) Stop() {
	close(s.doneC)
	s.wg.Wait()
	s.bus.Close()
}

func (s *RoutingService) scanLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.scanOnce()
	for {
		select {
		case <-ticker.C:
			s.scanOnce()
		case <-s.doneC:
			return
		}
	}
}

func (s *RoutingService) scanOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	for _, pair := range s.symbols {
		decision := s.router.Route(ctx, pair.Base, pair.Quote, s.venues)
		if err := s.bus.PublishRoutingDecision(decision); err != nil {
			log.Printf("Failed to publish routing decision for %s: %v", pair.String(), err)
		}

		composite := s.agg.GetCompositeQuote(ctx, pair.Base, pair.Quote, s.venues)
		if pair.Quote != "USD" && composite.Mid.IsPositive() {
			if usdMid := s.converter.Convert(ctx, pair.Quote, "USD", composite.Mid); usdMid.IsPositive() {
				log.Printf("%s mid %s (~%s USD)", pair.String(), composite.Mid.StringFixed(4), usdMid.StringFixed(4))
			}
		}
		opps := s.spread.Detect(pair.String(), composite.Venues, s.cfg.RoutingExpectedGrossEdgeBps)
		if err := s.bus.PublishSpreadOpportunities(pair.String(), executableOnly(opps)); err != nil {
			log.Printf("Failed to publish spread opportunities for %s: %v", pair.String(), err)
		}
	}

	s.scanFunding()

	if err := s.bus.PublishVenueHealth(s.monitor.Snapshots(), s.geo.Snapshot()); err != nil {
		log.Printf("Failed to publish venue health: %v", err)
	}
}

func (s *RoutingService) scanFunding() {
	s.fundingMu.Lock()
	fresh := arbitrage.FreshFundingSnapshots(s.fundingSnaps, s.cfg.FundingMaxAge, time.Now().UTC())
	s.fundingSnaps = fresh
	s.fundingMu.Unlock()

	if len(fresh) == 0 {
		return
	}
	if err := s.bus.PublishFundingOpportunities(s.funding.Detect(fresh)); err != nil {
		log.Printf("Failed to publish funding opportunities: %v", err)
	}
}

func (s *RoutingService) recordFundingSnapshot(snap types.FundingSnapshot) {
	s.fundingMu.Lock()
	defer s.fundingMu.Unlock()
	s.fundingSnaps = append(s.fundingSnaps, snap)
}

func executableOnly(opps []types.SpreadDivergenceOpportunity) []types.SpreadDivergenceOpportunity {
	out := make([]types.SpreadDivergenceOpportunity, 0, len(opps))
	for _, o := range opps {
		if o.IsExecutable || o.NetEdgeBps.GreaterThan(decimal.Zero) {
			out = append(out, o)
		}
	}
	return out
}
