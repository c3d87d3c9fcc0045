package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/eislager/eislager-pro/sdk"
)

func main() {
	services, err := sdk.NewServices(sdk.DefaultServicesConfig())
	if err != nil {
		log.Fatalf("Failed to create clients: %v", err)
	}
	defer services.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Example 1: Log in. Every client picks up the token.
	fmt.Println("--- Example 1: Login ---")
	result, err := services.Login(ctx, "clerk@eislager.example", "secret")
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	fmt.Printf("✓ Logged in as %s (%s)\n", result.User.Name, result.User.Role)

	// Example 2: A paginated list through a typed client
	fmt.Println("\n--- Example 2: Flavors ---")
	flavors := sdk.NewTypedClient[sdk.Page[sdk.Flavor]](services.Client(sdk.ServiceInventory))
	page, err := flavors.Get(ctx, "/api/v1/flavors?page=1&limit=5")
	if err != nil {
		log.Fatalf("Failed to list flavors: %v", err)
	}
	for _, f := range page.Items {
		fmt.Printf("  %-20s %5.2f EUR  stock %d\n", f.Name, f.Price, f.Stock)
	}
	fmt.Printf("✓ Page %d of %d\n", page.Pagination.Page, page.Pagination.TotalPages)

	// Example 3: Semantic errors are never masked
	fmt.Println("\n--- Example 3: Not found ---")
	_, err = sdk.NewTypedClient[sdk.Store](services.Client(sdk.ServiceAdmin)).
		Get(ctx, sdk.BuildPath("/api/v1/shops/{0}", "does-not-exist"))
	switch {
	case err == nil:
		fmt.Println("✓ Shop found (or served from fallback)")
	case sdk.IsNotFound(err):
		fmt.Println("✓ Shop not found, as expected")
	case sdk.IsUnauthorized(err):
		fmt.Println("Session expired, please log in again")
	default:
		log.Printf("Unexpected error: %v", err)
	}

	// Example 4: Raw envelope access
	fmt.Println("\n--- Example 4: Envelope ---")
	env, err := services.Client(sdk.ServiceAnalytics).Get(ctx, "/api/v1/analytics/kpis")
	if err != nil {
		log.Fatalf("Failed to load KPIs: %v", err)
	}
	kpis, err := sdk.DecodeData[sdk.KPIs](env)
	if err != nil {
		log.Fatalf("Failed to decode KPIs: %v", err)
	}
	fmt.Printf("✓ Revenue %.2f over %s (%+.1f%%)\n", kpis.Revenue, kpis.Period, kpis.RevenueGrowth)

	if err := services.Logout(ctx); err != nil {
		log.Printf("Logout failed: %v", err)
	}
}
