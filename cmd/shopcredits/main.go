package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

func main() {
	var (
		shopFlag    string
		creditFlag  int
		planFlag    string
		installFlag bool
	)

	flag.StringVar(&shopFlag, "shop", "", "shop domain to update (example.myshopify.com)")
	flag.IntVar(&creditFlag, "credits", 0, "credits to add (negative to deduct)")
	flag.StringVar(&planFlag, "plan", "", "plan to assign (free, starter, pro); empty keeps the current plan")
	flag.BoolVar(&installFlag, "install", false, "create the shop record when it does not exist yet")
	flag.Parse()

	shop := strings.TrimSpace(strings.ToLower(shopFlag))
	plan := strings.TrimSpace(strings.ToLower(planFlag))

	if shop == "" {
		exitWithError(errors.New("-shop is required"))
	}
	if creditFlag == 0 && plan == "" && !installFlag {
		exitWithError(errors.New("nothing to do: provide -credits, -plan, and/or -install"))
	}
	switch plan {
	case "", "free", "starter", "pro":
	default:
		exitWithError(fmt.Errorf("unsupported plan %q", planFlag))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "shopcredits").Logger()
	runner := infra.NewSQLRunner(pool, logger)
	shops := repo.NewShopRepository(runner)

	ensureCtx, cancelEnsure := context.WithTimeout(context.Background(), 5*time.Second)
	existed, err := ensureShop(ensureCtx, shops, shop, plan, installFlag)
	cancelEnsure()
	if err != nil {
		exitWithError(err)
	}

	// Upsert already applied the plan on a fresh install; existing shops get
	// a plain plan update so their access token is untouched.
	if plan != "" && existed {
		updateCtx, cancelUpdate := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := runner.Exec(updateCtx, sqlinline.QSetShopPlan, shop, plan)
		cancelUpdate()
		if err != nil {
			exitWithError(fmt.Errorf("failed to update plan: %w", err))
		}
	}

	grantCtx, cancelGrant := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelGrant()
	snapshot, err := shops.GrantCredits(grantCtx, shop, creditFlag)
	if err != nil {
		exitWithError(fmt.Errorf("failed to grant credits: %w", err))
	}

	fmt.Printf("Shop %s updated: plan=%s credit_balance=%d\n", shop, snapshot.Plan, snapshot.Balance)
}

// ensureShop verifies the shop exists, creating it when install is set. It
// reports whether the shop already existed.
func ensureShop(ctx context.Context, shops domain.ShopRepository, shopDomain, plan string, install bool) (bool, error) {
	_, err := shops.GetByDomain(ctx, shopDomain)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		if !install {
			return false, fmt.Errorf("shop %q not found (use -install to create it)", shopDomain)
		}
	default:
		return false, fmt.Errorf("failed to load shop: %w", err)
	}

	shopPlan := domain.ShopPlan(plan)
	if plan == "" {
		shopPlan = domain.ShopPlanFree
	}
	if err := shops.Upsert(ctx, &domain.Shop{
		Domain: shopDomain,
		Plan:   shopPlan,
	}); err != nil {
		return false, fmt.Errorf("failed to create shop: %w", err)
	}
	return false, nil
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
