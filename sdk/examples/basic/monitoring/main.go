package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/eislager/eislager-pro/sdk"
)

// logObserver prints fallbacks and session changes as they happen.
type logObserver struct {
	sdk.NoopObserver
	logger *log.Logger
}

func (o *logObserver) OnFallback(service, method, path string, category sdk.FallbackCategory, cause error) {
	o.logger.Printf("[%s] %s %s served from fallback (%s): %v", service, method, path, category, cause)
}

func (o *logObserver) OnSessionInvalidated(service string, purgeErr error) {
	o.logger.Printf("[%s] session invalidated, purge error: %v", service, purgeErr)
}

func (o *logObserver) OnCircuitBreakerStateChange(service string, oldState, newState sdk.CircuitState) {
	o.logger.Printf("[%s] circuit %s -> %s", service, oldState, newState)
}

func main() {
	metrics := sdk.NewMetricsCollector()
	observer := sdk.NewCompositeObserver(metrics, &logObserver{logger: log.New(os.Stdout, "", log.LstdFlags)})

	cfg := sdk.DefaultServicesConfig()
	cfg.Template.
		WithTimeout(3 * time.Second).
		WithObserver(observer).
		WithCircuitBreaker(sdk.DefaultCircuitBreakerConfig())

	services, err := sdk.NewServices(cfg)
	if err != nil {
		log.Fatalf("Failed to create clients: %v", err)
	}
	defer services.Close()

	ctx := context.Background()
	calls := map[string]string{
		sdk.ServiceInventory:      "/api/v1/flavors",
		sdk.ServiceSales:          "/api/v1/orders?limit=20",
		sdk.ServiceAdmin:          "/api/v1/shops",
		sdk.ServiceCommunications: "/api/v1/notifications",
		sdk.ServiceAnalytics:      "/api/v1/analytics/dashboard",
	}
	for i := 0; i < 3; i++ {
		for service, path := range calls {
			if _, err := services.Client(service).Get(ctx, path); err != nil {
				log.Printf("%s %s: %v", service, path, err)
			}
		}
	}

	snapshot := metrics.GetMetrics()
	fmt.Println("\n--- Requests ---")
	requests := snapshot["requests"].(map[string]int64)
	keys := make([]string, 0, len(requests))
	for k := range requests {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-40s %d\n", k, requests[k])
	}

	fmt.Println("\n--- Fallbacks ---")
	for category, n := range snapshot["fallbacks"].(map[string]int64) {
		fmt.Printf("  %-15s %d\n", category, n)
	}
}
