// Command cartctl открывает корзину поверх локального SQLite-файла и выполняет одну операцию.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstate/internal/cart"
	"github.com/vladislavdragonenkov/cartstate/internal/cartview"
	"github.com/vladislavdragonenkov/cartstate/internal/catalog"
	"github.com/vladislavdragonenkov/cartstate/internal/domain"
	"github.com/vladislavdragonenkov/cartstate/internal/storage/sqlite"
)

const usage = `usage: cartctl [-db path] [-catalog-url url] [-session id] <command> [args]

commands:
  list                     show cart items and totals
  add <id> [title price]   add product (looked up in catalog when title/price omitted)
  inc <id>                 increment item quantity
  dec <id>                 decrement item quantity (never below 1)
`

var errUsage = errors.New("invalid usage")

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.WarnLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		log.WithError(err).Error("cartctl failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) (err error) {
	flags := flag.NewFlagSet("cartctl", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	dbPath := flags.String("db", "cartstate.db", "path to sqlite database file")
	catalogURL := flags.String("catalog-url", "", "catalog base URL (empty: built-in static catalog)")
	session := flags.String("session", "", "cart session id")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	rest := flags.Args()
	if len(rest) == 0 {
		return fmt.Errorf("%w: command is required", errUsage)
	}

	var products domain.Catalog = catalog.NewStaticCatalog(catalog.DefaultProducts())
	if *catalogURL != "" {
		products = catalog.NewHTTPCatalog(*catalogURL)
	}

	mutate, err := parseCommand(rest, products)
	if err != nil {
		return err
	}

	kv, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := kv.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	store, err := cart.Open(ctx, kv, products,
		cart.WithKey(cart.SessionKey(*session)),
		cart.WithLogger(log.WithField("component", "cartctl")),
	)
	if err != nil {
		return fmt.Errorf("open cart: %w", err)
	}

	snapshot, mutateErr := mutate(ctx, store)
	// Close дописывает очередь записи; ошибка записи снапшота возвращается отсюда.
	closeErr := store.Close(ctx)
	if mutateErr != nil {
		return mutateErr
	}
	if closeErr != nil {
		return closeErr
	}

	return printCart(stdout, snapshot)
}

type mutation func(context.Context, *cart.Store) (cart.Snapshot, error)

func parseCommand(args []string, products domain.Catalog) (mutation, error) {
	command, params := args[0], args[1:]

	switch command {
	case "list":
		if len(params) != 0 {
			return nil, fmt.Errorf("%w: list takes no arguments", errUsage)
		}
		return func(_ context.Context, store *cart.Store) (cart.Snapshot, error) {
			return store.Snapshot()
		}, nil

	case "add":
		switch len(params) {
		case 1:
			id := params[0]
			return func(ctx context.Context, store *cart.Store) (cart.Snapshot, error) {
				product, err := findProduct(ctx, products, id)
				if err != nil {
					return cart.Snapshot{}, err
				}
				return store.AddToCart(ctx, product)
			}, nil
		case 3:
			price, err := strconv.ParseFloat(params[2], 64)
			if err != nil || price < 0 {
				return nil, fmt.Errorf("%w: price must be a non-negative number, got %q", errUsage, params[2])
			}
			product := domain.Product{ID: params[0], Title: params[1], Price: price}
			return func(ctx context.Context, store *cart.Store) (cart.Snapshot, error) {
				return store.AddToCart(ctx, product)
			}, nil
		default:
			return nil, fmt.Errorf("%w: add expects <id> or <id> <title> <price>", errUsage)
		}

	case "inc", "dec":
		if len(params) != 1 {
			return nil, fmt.Errorf("%w: %s expects <id>", errUsage, command)
		}
		id := params[0]
		if command == "inc" {
			return func(ctx context.Context, store *cart.Store) (cart.Snapshot, error) {
				return store.Increment(ctx, id)
			}, nil
		}
		return func(ctx context.Context, store *cart.Store) (cart.Snapshot, error) {
			return store.Decrement(ctx, id)
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func findProduct(ctx context.Context, products domain.Catalog, id string) (domain.Product, error) {
	list, err := products.ListProducts(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("list catalog products: %w", err)
	}
	for _, product := range list {
		if product.ID == id {
			return product, nil
		}
	}
	return domain.Product{}, fmt.Errorf("product %q not found in catalog", id)
}

func printCart(out io.Writer, snapshot cart.Snapshot) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPRICE\tQTY")
	for _, item := range snapshot.Items {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\n", item.ID, item.Title, item.Price, item.EffectiveQuantity())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	totals := cartview.Compute(snapshot.Items)
	_, err := fmt.Fprintf(out, "items: %d  subtotal: %.2f  revision: %d\n",
		totals.TotalItemCount, totals.Subtotal, snapshot.Revision)
	return err
}
