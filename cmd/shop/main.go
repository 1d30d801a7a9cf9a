// Command shop is an interactive storefront client.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/and161185/cacti-shop/internal/crypto/sessioncrypto"
	"github.com/and161185/cacti-shop/internal/gateway/httpapi"
	"github.com/and161185/cacti-shop/internal/model"
	"github.com/and161185/cacti-shop/internal/service"
	"github.com/and161185/cacti-shop/internal/storage"
	"github.com/and161185/cacti-shop/internal/storage/sqlite"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// ---- config dir ----

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "cactishop")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cactishop")
}

// ---- utils ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
}

// envTokens reads the device push token from the environment; an unset
// variable counts as a denied capability.
type envTokens struct{}

func (envTokens) Token(context.Context) (string, error) {
	if t := os.Getenv("SHOP_PUSH_TOKEN"); t != "" {
		return t, nil
	}
	return "", errors.New("push capability not granted")
}

func usage() {
	fmt.Fprint(os.Stderr, `shop - storefront client

Commands:
  login <email> <password>
  signup <email> <password>
  logout
  whoami
  reset-password <email>
  reset-email <new-email>
  delete-account

  products                                  (fetch and list catalog)
  mine                                      (list own products)
  product-add <price> <title> | <imageUrl> | <description>
  product-edit <id> <title> | <imageUrl> | <description>
  product-rm <id>

  cart
  cart-add <productId> [qty]
  cart-rm <productId> [qty]
  order                                     (submit the cart)
  orders                                    (fetch and list history)

  help, quit
`)
}

// main wires the stores, the gateway client and the services, rehydrates the
// session, then runs the command loop.
func main() {
	_ = godotenv.Load()

	// Flags
	authURL := flag.String("auth-url", envDefault("SHOP_AUTH_URL", "https://identitytoolkit.googleapis.com"), "identity API base URL")
	dataURL := flag.String("data-url", envDefault("SHOP_DATA_URL", ""), "document store base URL (required)")
	pushURL := flag.String("push-url", envDefault("SHOP_PUSH_URL", "https://exp.host/--/api/v2/push/send"), "push delivery endpoint")
	apiKey := flag.String("api-key", envDefault("SHOP_API_KEY", ""), "identity API key (required)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
	)

	if *dataURL == "" || *apiKey == "" {
		fmt.Fprintln(os.Stderr, "need -data-url and -api-key (or SHOP_DATA_URL / SHOP_API_KEY)")
		os.Exit(2)
	}

	dir := cfgDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		logger.Fatal("config dir", zap.Error(err))
	}

	ctx := context.Background()

	key, err := sessioncrypto.LoadOrCreateKey(filepath.Join(dir, "sealing.key"))
	if err != nil {
		logger.Fatal("sealing key", zap.Error(err))
	}
	kv, err := sqlite.Open(ctx, filepath.Join(dir, "shop.db"))
	if err != nil {
		logger.Fatal("open local store", zap.Error(err))
	}
	defer func() { _ = kv.Close() }()
	store := storage.NewSealed(kv, key)

	client := httpapi.New(httpapi.Config{
		AuthBaseURL: *authURL,
		DataBaseURL: *dataURL,
		PushURL:     *pushURL,
		APIKey:      *apiKey,
		Logger:      logger,
	})

	session := service.NewSessionManager(client, store, logger)
	cart := service.NewCartAggregator()
	catalog := service.NewCatalogSynchronizer(client, session, envTokens{}, logger)
	orders := service.NewOrderOrchestrator(client, client, cart, session, logger)
	account := service.NewAccountFlow(catalog, session, logger)

	if err := session.Rehydrate(ctx); err != nil {
		logger.Warn("rehydrate", zap.Error(err))
	}
	if s := session.Current(); s.Active() {
		fmt.Printf("signed in as %s (expires %s)\n", s.Email, s.ExpiresAt.Format(time.RFC3339))
	}

	app := &app{session: session, cart: cart, catalog: catalog, orders: orders, account: account}
	app.run()
}

func envDefault(key, dflt string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return dflt
}

// app holds the wired services for the command loop.
type app struct {
	session *service.SessionManager
	cart    *service.CartAggregator
	catalog *service.CatalogSynchronizer
	orders  *service.OrderOrchestrator
	account *service.AccountFlow
}

func (a *app) run() {
	sc := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			if quit := a.dispatch(line); quit {
				return
			}
		}
		fmt.Print("> ")
	}
}

func (a *app) dispatch(line string) (quit bool) {
	args := strings.Fields(line)
	cmd, args := args[0], args[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {

	case "help":
		usage()

	case "quit", "exit":
		return true

	case "login":
		if len(args) != 2 {
			fail(errors.New("usage: login <email> <password>"))
			return
		}
		if err := a.session.Login(ctx, args[0], args[1]); err != nil {
			fail(err)
			return
		}
		fmt.Println("ok")

	case "signup":
		if len(args) != 2 {
			fail(errors.New("usage: signup <email> <password>"))
			return
		}
		if err := a.session.Signup(ctx, args[0], args[1]); err != nil {
			fail(err)
			return
		}
		fmt.Println("ok, verify your email then login")

	case "logout":
		if err := a.session.Logout(ctx); err != nil {
			fail(err)
			return
		}
		fmt.Println("ok")

	case "whoami":
		printJSON(a.session.Current())

	case "reset-password":
		if len(args) != 1 {
			fail(errors.New("usage: reset-password <email>"))
			return
		}
		if err := a.session.ResetPassword(ctx, args[0]); err != nil {
			fail(err)
			return
		}
		fmt.Println("reset email sent; you were logged out")

	case "reset-email":
		if len(args) != 1 {
			fail(errors.New("usage: reset-email <new-email>"))
			return
		}
		if err := a.session.ResetEmail(ctx, args[0]); err != nil {
			fail(err)
			return
		}
		fmt.Println("email updated; verify it and login again")

	case "delete-account":
		if err := a.account.DeleteAccount(ctx); err != nil {
			fail(err)
			return
		}
		fmt.Println("account deleted")

	case "products":
		if err := a.catalog.FetchAll(ctx); err != nil {
			fail(err)
			return
		}
		printJSON(a.catalog.Snapshot().All)

	case "mine":
		printJSON(a.catalog.Snapshot().Owned)

	case "product-add":
		if len(args) < 2 {
			fail(errors.New("usage: product-add <price> <title> | <imageUrl> | <description>"))
			return
		}
		price, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			fail(fmt.Errorf("bad price: %w", err))
			return
		}
		title, imageURL, desc := splitBars(strings.Join(args[1:], " "))
		p, err := a.catalog.Create(ctx, model.NewProduct{
			Title: title, ImageURL: imageURL, Description: desc, Price: price,
		})
		if err != nil {
			fail(err)
			return
		}
		printJSON(p)

	case "product-edit":
		if len(args) < 2 {
			fail(errors.New("usage: product-edit <id> <title> | <imageUrl> | <description>"))
			return
		}
		title, imageURL, desc := splitBars(strings.Join(args[1:], " "))
		if err := a.catalog.Update(ctx, args[0], model.ProductPatch{
			Title: title, ImageURL: imageURL, Description: desc,
		}); err != nil {
			fail(err)
			return
		}
		fmt.Println("ok")

	case "product-rm":
		if len(args) != 1 {
			fail(errors.New("usage: product-rm <id>"))
			return
		}
		if err := a.catalog.Delete(ctx, args[0]); err != nil {
			fail(err)
			return
		}
		fmt.Println("ok")

	case "cart":
		printJSON(a.cart.Snapshot())

	case "cart-add":
		if len(args) < 1 {
			fail(errors.New("usage: cart-add <productId> [qty]"))
			return
		}
		qty := 1
		if len(args) > 1 {
			q, err := strconv.Atoi(args[1])
			if err != nil {
				fail(fmt.Errorf("bad qty: %w", err))
				return
			}
			qty = q
		}
		product, ok := a.findProduct(args[0])
		if !ok {
			fail(fmt.Errorf("unknown product %s (run `products` first)", args[0]))
			return
		}
		if err := a.cart.AddItem(product, qty); err != nil {
			fail(err)
			return
		}
		printJSON(a.cart.Snapshot())

	case "cart-rm":
		if len(args) < 1 {
			fail(errors.New("usage: cart-rm <productId> [qty]"))
			return
		}
		qty := 1
		if len(args) > 1 {
			q, err := strconv.Atoi(args[1])
			if err != nil {
				fail(fmt.Errorf("bad qty: %w", err))
				return
			}
			qty = q
		}
		a.cart.RemoveItem(args[0], qty)
		printJSON(a.cart.Snapshot())

	case "order":
		order, err := a.orders.Submit(ctx)
		if err != nil {
			fail(err)
			return
		}
		printJSON(order)

	case "orders":
		if err := a.orders.FetchAll(ctx); err != nil {
			fail(err)
			return
		}
		printJSON(a.orders.Orders())

	default:
		fail(fmt.Errorf("unknown command %q (try `help`)", cmd))
	}
	return false
}

func (a *app) findProduct(id string) (model.Product, bool) {
	for _, p := range a.catalog.Snapshot().All {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

// splitBars parses "title | imageUrl | description" with optional tails.
func splitBars(s string) (title, imageURL, desc string) {
	parts := strings.SplitN(s, "|", 3)
	title = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		imageURL = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		desc = strings.TrimSpace(parts[2])
	}
	return title, imageURL, desc
}
