// Package main provides an offline cart planner. It runs the full
// decision pipeline against a CSV catalog and an embedded facts
// database without starting a server, for recipe experiments and
// catalog debugging.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	planningapp "github.com/cartwise/v3/internal/application/planning"
	"github.com/cartwise/v3/internal/domain/planning"
	"github.com/cartwise/v3/internal/infrastructure/config"
	"github.com/cartwise/v3/internal/infrastructure/ingest"
	gormRepo "github.com/cartwise/v3/internal/infrastructure/persistence/gorm"
	"github.com/cartwise/v3/internal/infrastructure/persistence/memory"
	"github.com/cartwise/v3/internal/infrastructure/persistence/sqlite"
	"github.com/cartwise/v3/internal/ports/inbound"
	"github.com/cartwise/v3/pkg/logger"
	gormLogger "gorm.io/gorm/logger"
)

func main() {
	var (
		catalogPath = flag.String("catalog", "catalog.csv", "Path to the catalog CSV file")
		factsPath   = flag.String("facts", "", "Path to the SQLite facts database (empty for in-memory with seed data)")
		ingredients = flag.String("ingredients", "", "Comma-separated ingredient list, each as name or name:form (e.g. \"turmeric:powder,onion:whole\")")
		servings    = flag.Int("servings", 2, "Number of servings to plan for")
		storesFlag  = flag.String("stores", "", "Store roster as id:name:kind:delivery_days entries, comma-separated (overrides the config file)")
		configPath  = flag.String("config", "", "Configuration file path")
		asJSON      = flag.Bool("json", false, "Print the raw plan envelope as JSON")
		verbose     = flag.Bool("verbose", false, "Include decision traces per item")
	)
	flag.Parse()

	inputs, err := parseIngredients(*ingredients)
	if err != nil {
		fail("%v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail("failed to load configuration: %v", err)
	}
	if *storesFlag != "" {
		stores, err := parseStores(*storesFlag)
		if err != nil {
			fail("%v", err)
		}
		cfg.Catalog.Stores = stores
	}
	roster := cfg.StoreRoster()
	if len(roster) == 0 {
		fail("no stores configured: declare catalog.stores in the config file or pass -stores")
	}

	// Quiet infrastructure logging; the plan itself is the output.
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		fail("failed to create logger: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Catalog
	loader, err := ingest.NewLoader(ingest.NewFileSource(*catalogPath), roster, log)
	if err != nil {
		fail("failed to create catalog loader: %v", err)
	}
	index := memory.NewProductIndex(loader, log)
	if err := index.Reload(ctx); err != nil {
		fail("failed to load catalog: %v", err)
	}

	// Facts
	db, err := sqlite.SetupDatabase(*factsPath, gormLogger.Silent)
	if err != nil {
		fail("failed to open facts database: %v", err)
	}
	if err := sqlite.SeedDatabase(db); err != nil {
		fail("failed to seed facts database: %v", err)
	}

	planCache := memory.NewPlanCache()
	defer planCache.Close()

	service := planningapp.NewPlanningService(
		index,
		gormRepo.NewFactsRepository(db),
		planCache,
		cfg.PlannerConfig(),
		cfg.BrandRegistry(),
		cfg.Plans.TTL,
		log,
	)

	envelope, err := service.CreatePlan(ctx, inbound.CreatePlanCommand{
		Ingredients: inputs,
		Servings:    *servings,
	})
	if err != nil {
		fail("planning failed: %v", err)
	}

	if *asJSON {
		data, err := json.MarshalIndent(envelope, "", "  ")
		if err != nil {
			fail("failed to encode plan: %v", err)
		}
		fmt.Println(string(data))
		return
	}

	printPlan(envelope, *verbose)
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// parseIngredients splits the -ingredients flag into request lines.
// Each entry is "name" or "name:form".
func parseIngredients(raw string) ([]inbound.IngredientInput, error) {
	inputs := make([]inbound.IngredientInput, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		segments := strings.SplitN(part, ":", 2)
		input := inbound.IngredientInput{Name: strings.TrimSpace(segments[0])}
		if len(segments) == 2 {
			input.Form = strings.TrimSpace(segments[1])
		}
		inputs = append(inputs, input)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("at least one ingredient is required, e.g. -ingredients \"turmeric:powder,onion\"")
	}
	return inputs, nil
}

// parseStores decodes the -stores flag into roster entries
func parseStores(raw string) ([]config.StoreSettings, error) {
	var stores []config.StoreSettings
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) != 4 {
			return nil, fmt.Errorf("store %q must be id:name:kind:delivery_days", part)
		}
		days, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, fmt.Errorf("store %q has a non-numeric delivery day count", part)
		}
		stores = append(stores, config.StoreSettings{
			ID:           fields[0],
			Name:         fields[1],
			Kind:         fields[2],
			DeliveryDays: days,
		})
	}
	return stores, nil
}

func printPlan(envelope *inbound.PlanEnvelope, verbose bool) {
	plan := envelope.Plan

	fmt.Printf("Plan %s (catalog %s", envelope.PlanID, envelope.CatalogHash)
	if envelope.Cached {
		fmt.Print(", cached")
	}
	fmt.Println(")")

	storeNames := make(map[string]string, len(plan.StorePlan.Stores))
	if len(plan.StorePlan.Stores) > 0 {
		fmt.Println("\nStores:")
		for _, planned := range plan.StorePlan.Stores {
			storeNames[planned.Store.ID] = planned.Store.Name
			fmt.Printf("  %s (%s, delivers in %d days)\n", planned.Store.Name, planned.Role, planned.Store.DeliveryDays)
		}
	}

	fmt.Printf("\nItems (%d servings):\n", plan.Servings)
	for _, item := range plan.Items {
		name := item.Ingredient.Name
		if item.Ingredient.Form != "" {
			name = fmt.Sprintf("%s (%s)", name, item.Ingredient.Form)
		}

		if item.Status != planning.ItemStatusAvailable || item.Default == nil {
			fmt.Printf("  %-30s unavailable\n", name)
			continue
		}

		store := storeNames[item.StoreID]
		if store == "" {
			store = item.StoreID
		}
		fmt.Printf("  %-30s $%6.2f  %s [%s]\n", name, item.Default.Price, item.Default.Title, store)

		if len(item.Chips.WhyPick) > 0 {
			fmt.Printf("  %-30s    why: %s\n", "", strings.Join(item.Chips.WhyPick, "; "))
		}
		if item.CheaperSwap != nil {
			fmt.Printf("  %-30s    swap: $%.2f %s (save $%.2f)\n", "",
				item.CheaperSwap.Price, item.CheaperSwap.Title, item.Default.Price-item.CheaperSwap.Price)
		}
		if len(item.Chips.Tradeoffs) > 0 {
			fmt.Printf("  %-30s    tradeoffs: %s\n", "", strings.Join(item.Chips.Tradeoffs, "; "))
		}

		if verbose {
			for _, note := range item.Trace.Eliminated {
				fmt.Printf("  %-30s    ruled out: %s (%s)\n", "", note.Title, note.Reason)
			}
		}
	}

	if len(plan.StorePlan.Unavailable) > 0 {
		fmt.Printf("\nUnavailable: %s\n", strings.Join(plan.StorePlan.Unavailable, ", "))
	}

	fmt.Println("\nTotals:")
	fmt.Printf("  Ethical cart: $%.2f\n", plan.Totals.Ethical)
	if plan.Totals.Savings > 0 {
		fmt.Printf("  Cheaper cart: $%.2f (save $%.2f)\n", plan.Totals.Cheaper, plan.Totals.Savings)
	}
}
