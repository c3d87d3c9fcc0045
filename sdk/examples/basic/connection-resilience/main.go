package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/eislager/eislager-pro/sdk"
)

// Points a client at a port nobody listens on and shows that callers keep
// receiving usable data.
func main() {
	metrics := sdk.NewMetricsCollector()

	config := sdk.DefaultConfig().
		WithService(sdk.ServiceSales).
		WithBaseURL("http://127.0.0.1:1").
		WithTimeout(2 * time.Second).
		WithObserver(metrics).
		WithCircuitBreaker(sdk.CircuitBreakerConfig{
			FailureThreshold: 3,
			Timeout:          30 * time.Second,
		})

	client, err := sdk.NewClient(config)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	orders := sdk.NewTypedClient[sdk.Page[sdk.Order]](client)

	for i := 1; i <= 5; i++ {
		page, err := orders.Get(ctx, fmt.Sprintf("/api/v1/orders?page=%d&limit=3", i))
		if err != nil {
			log.Fatalf("Request %d failed: %v", i, err)
		}
		fmt.Printf("Request %d: %d orders, first %s (%s)\n",
			i, len(page.Items), page.Items[0].ID, page.Items[0].Status)
	}

	fmt.Printf("\nServed from fallback: %d\n", metrics.FallbackCount(sdk.FallbackOrders))
	fmt.Printf("Circuit changes: %v\n", metrics.GetMetrics()["circuit_breaker_state_changes"])

	// Strict mode surfaces the outage instead.
	strict, err := sdk.NewClient(config.WithoutFallback().WithCircuitBreaker(sdk.DefaultCircuitBreakerConfig()))
	if err != nil {
		log.Fatalf("Failed to create strict client: %v", err)
	}
	defer strict.Close()

	if _, err := strict.Get(ctx, "/api/v1/orders"); err != nil {
		fmt.Printf("Strict client: %v\n", err)
	}
}
