package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap/zapcore"

	"github.com/richclaudfelixjp/storefront/configs"
	appauth "github.com/richclaudfelixjp/storefront/internal/application/auth"
	appcart "github.com/richclaudfelixjp/storefront/internal/application/cart"
	appcatalog "github.com/richclaudfelixjp/storefront/internal/application/catalog"
	appcheckout "github.com/richclaudfelixjp/storefront/internal/application/checkout"
	apphistory "github.com/richclaudfelixjp/storefront/internal/application/history"
	dompayment "github.com/richclaudfelixjp/storefront/internal/domain/payment"
	"github.com/richclaudfelixjp/storefront/internal/infrastructure/api"
	"github.com/richclaudfelixjp/storefront/internal/infrastructure/memory"
	obsinfra "github.com/richclaudfelixjp/storefront/internal/infrastructure/observability"
	"github.com/richclaudfelixjp/storefront/internal/infrastructure/observability/oteltrace"
	"github.com/richclaudfelixjp/storefront/internal/infrastructure/observability/prometrics"
	"github.com/richclaudfelixjp/storefront/internal/infrastructure/observability/zaplogger"
	stripeinfra "github.com/richclaudfelixjp/storefront/internal/infrastructure/stripe"
	"github.com/richclaudfelixjp/storefront/internal/observability"
)

func main() {
	configDir := flag.String("config", "./configs", "directory holding base.yaml and env overlays")
	envName := flag.String("env", getenvDefault("ENV", "dev"), "config overlay name")
	flag.Parse()

	cfg, err := configs.Load(*configDir, *envName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := zaplogger.New(logLevel(cfg.App.LogLevel),
		observability.F("service", cfg.App.Name),
		observability.F("env", cfg.App.Env),
	)

	registry := prometrics.New(cfg.App.Name, "client")
	counters := map[observability.MetricKey]observability.Counter{
		observability.MWorkflowRequests: registry.Counter(
			string(observability.MWorkflowRequests),
			"Total number of workflow invocations.",
			"workflow", "outcome",
		),
		observability.MAPIRequests: registry.Counter(
			string(observability.MAPIRequests),
			"Total number of shop API exchanges.",
			"endpoint", "outcome",
		),
		observability.MSessionInvalidated: registry.Counter(
			string(observability.MSessionInvalidated),
			"Count of server-signaled session invalidations.",
		),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MWorkflowDuration: registry.Histogram(
			string(observability.MWorkflowDuration),
			"Duration of workflow execution in seconds.",
			nil,
			"workflow",
		),
		observability.MAPIRequestDuration: registry.Histogram(
			string(observability.MAPIRequestDuration),
			"Duration of shop API exchanges in seconds.",
			nil,
			"endpoint",
		),
	}
	tel := obsinfra.New(oteltrace.New(cfg.App.Name), logger, counters, histograms)

	sessions := memory.NewSessionStore()
	nav := newShellNavigator(os.Stdout)

	client, err := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, sessions, nav.ToLogin, tel)
	if err != nil {
		tel.Logger().Error("client_init_failed", observability.F("error", err.Error()))
		os.Exit(1)
	}

	authSvc := appauth.NewService(api.NewAuthGateway(client), sessions, tel)
	cartStore := appcart.NewStore(
		api.NewCartGateway(client),
		authSvc,
		appcart.FetchFailureLevel(cfg.Cart.FetchFailureLogLevel),
		tel,
	)
	orderGW := api.NewOrderGateway(client)
	paymentGW := api.NewPaymentGateway(client)
	catalogSvc := appcatalog.NewService(api.NewCatalogGateway(client))
	historySvc := apphistory.NewService(orderGW, tel)
	placement := appcheckout.NewPlacementWorkflow(cartStore, orderGW, authSvc, tel)

	var confirmer dompayment.Confirmer
	if cfg.Stripe.SecretKey != "" {
		confirmer, err = stripeinfra.NewConfirmer(cfg.Stripe.SecretKey, tel)
		if err != nil {
			tel.Logger().Error("stripe_init_failed", observability.F("error", err.Error()))
			os.Exit(1)
		}
	} else {
		tel.Logger().Warn("stripe_disabled_no_secret_key")
		confirmer = declineAll{}
	}
	paymentWF := appcheckout.NewPaymentWorkflow(
		paymentGW, orderGW, confirmer, cartStore, nav,
		appcheckout.SystemClock(), cfg.Checkout.SuccessDwell, tel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			tel.Logger().Info("metrics_server_start", observability.F("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				tel.Logger().Error("metrics_server_error", observability.F("error", err.Error()))
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
	}

	shell := &shell{
		out:       os.Stdout,
		auth:      authSvc,
		carts:     cartStore,
		catalog:   catalogSvc,
		history:   historySvc,
		placement: placement,
		payment:   paymentWF,
	}
	shell.run(ctx, bufio.NewScanner(os.Stdin))
	tel.Logger().Info("storefront_exit")
}

// declineAll stands in when no provider key is configured; every confirmation
// fails and orders stay PENDING.
type declineAll struct{}

func (declineAll) Confirm(context.Context, dompayment.Intent, dompayment.Instrument) (dompayment.Status, error) {
	return dompayment.StatusFailed, fmt.Errorf("%w: no payment provider configured", dompayment.ErrDeclined)
}

// shellNavigator renders forced transitions as shell output. Navigation here
// is a prompt change, not a page load.
type shellNavigator struct{ out *os.File }

func newShellNavigator(out *os.File) *shellNavigator { return &shellNavigator{out: out} }

func (n *shellNavigator) ToLogin() {
	fmt.Fprintln(n.out, "session expired, please log in again (login <user> <password>)")
}

func (n *shellNavigator) ToOrderHistory(flash string) {
	fmt.Fprintf(n.out, "%s; returning to order history (orders)\n", flash)
}

type shell struct {
	out       *os.File
	auth      *appauth.Service
	carts     *appcart.Store
	catalog   *appcatalog.Service
	history   *apphistory.Service
	placement *appcheckout.PlacementWorkflow
	payment   *appcheckout.PaymentWorkflow
}

func (s *shell) run(ctx context.Context, in *bufio.Scanner) {
	fmt.Fprintln(s.out, "storefront ready; type 'help'")
	for {
		fmt.Fprint(s.out, "> ")
		if ctx.Err() != nil || !in.Scan() {
			return
		}
		line := strings.Fields(strings.TrimSpace(in.Text()))
		if len(line) == 0 {
			continue
		}
		if line[0] == "quit" || line[0] == "exit" {
			return
		}
		s.dispatch(ctx, line[0], line[1:])
	}
}

func (s *shell) dispatch(ctx context.Context, cmd string, args []string) {
	switch cmd {
	case "help":
		fmt.Fprintln(s.out, "commands: login <u> <p> | register <u> <p> | logout | products | cart | add <productID> <qty> | update <itemID> <qty> | remove <itemID> | checkout | pay <orderID> <paymentMethodID> | orders | quit")
	case "login":
		if len(args) != 2 {
			fmt.Fprintln(s.out, "usage: login <user> <password>")
			return
		}
		if err := s.auth.Login(ctx, args[0], args[1]); err != nil {
			fmt.Fprintln(s.out, err)
			return
		}
		s.carts.Fetch(ctx)
		fmt.Fprintln(s.out, "logged in")
	case "register":
		if len(args) != 2 {
			fmt.Fprintln(s.out, "usage: register <user> <password>")
			return
		}
		msg, err := s.auth.Register(ctx, args[0], args[1])
		if err != nil {
			fmt.Fprintln(s.out, err)
			return
		}
		fmt.Fprintln(s.out, msg)
	case "logout":
		if err := s.auth.Logout(ctx); err != nil {
			fmt.Fprintln(s.out, err)
		}
	case "products":
		products, err := s.catalog.List(ctx)
		if err != nil {
			fmt.Fprintln(s.out, err)
			return
		}
		for _, p := range products {
			fmt.Fprintf(s.out, "#%d %s ¥%d (stock %d)\n", p.ID, p.Name, p.UnitPrice, p.UnitsInStock)
		}
	case "cart":
		s.printCart(ctx)
	case "add", "update":
		if len(args) != 2 {
			fmt.Fprintf(s.out, "usage: %s <id> <qty>\n", cmd)
			return
		}
		id, err1 := strconv.ParseInt(args[0], 10, 64)
		qty, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil {
			fmt.Fprintln(s.out, "ids and quantities are numeric")
			return
		}
		var opErr error
		if cmd == "add" {
			_, opErr = s.carts.Add(ctx, id, qty)
		} else {
			_, opErr = s.carts.UpdateQuantity(ctx, id, qty)
		}
		if opErr != nil {
			fmt.Fprintln(s.out, opErr)
			return
		}
		s.printCart(ctx)
	case "remove":
		if len(args) != 1 {
			fmt.Fprintln(s.out, "usage: remove <itemID>")
			return
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fmt.Fprintln(s.out, "ids are numeric")
			return
		}
		if _, err := s.carts.Remove(ctx, id); err != nil {
			fmt.Fprintln(s.out, err)
			return
		}
		s.printCart(ctx)
	case "checkout":
		result, err := s.placement.Execute(ctx)
		if err != nil {
			s.printCheckoutError(ctx, err)
			return
		}
		fmt.Fprintf(s.out, "order #%d created; pay with: pay %d <paymentMethodID>\n", result.OrderID, result.OrderID)
	case "pay":
		if len(args) != 2 {
			fmt.Fprintln(s.out, "usage: pay <orderID> <paymentMethodID>")
			return
		}
		orderID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fmt.Fprintln(s.out, "ids are numeric")
			return
		}
		s.pay(ctx, orderID, args[1])
	case "orders":
		entries, err := s.history.List(ctx)
		if err != nil {
			fmt.Fprintln(s.out, err)
			return
		}
		for _, e := range entries {
			line := fmt.Sprintf("#%d %s ¥%d %s", e.Order.ID, e.Order.OrderDate.Format("2006-01-02 15:04"), e.Order.TotalAmount, e.StatusLabel)
			if e.RetryPayment {
				line += " (pay <orderID> <paymentMethodID> to retry)"
			}
			fmt.Fprintln(s.out, line)
		}
	default:
		fmt.Fprintln(s.out, "unknown command; type 'help'")
	}
}

// pay enters the payment workflow. Whether this is a fresh attempt or a retry
// is decided by the order's status as read from history.
func (s *shell) pay(ctx context.Context, orderID int64, paymentMethodID string) {
	entries, err := s.history.List(ctx)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	isRetry := false
	for _, e := range entries {
		if e.Order.ID == orderID {
			isRetry = e.RetryPayment
			break
		}
	}

	attempt, err := s.payment.Begin(ctx, orderID, isRetry)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	fmt.Fprintf(s.out, "order #%d total ¥%d, confirming...\n", attempt.Order.ID, attempt.Order.TotalAmount)

	err = s.payment.Confirm(ctx, attempt, dompayment.Instrument{PaymentMethodID: paymentMethodID})
	if err != nil {
		fmt.Fprintf(s.out, "payment failed: %v (order stays pending; retry from orders)\n", err)
	}
}

func (s *shell) printCheckoutError(ctx context.Context, err error) {
	switch {
	case errors.Is(err, appcheckout.ErrStockConflict):
		fmt.Fprintln(s.out, "some cart items have stock issues; review the updated cart before continuing")
		s.printCart(ctx)
	case errors.Is(err, appcheckout.ErrOrderRejected):
		fmt.Fprintln(s.out, appcheckout.RejectionMessage(err))
		s.printCart(ctx)
	case errors.Is(err, appcheckout.ErrCartEmpty):
		fmt.Fprintln(s.out, "cart is empty")
	case errors.Is(err, appcheckout.ErrNotAuthenticated):
		fmt.Fprintln(s.out, "log in first")
	default:
		fmt.Fprintln(s.out, "order submission failed; please try again")
	}
}

func (s *shell) printCart(ctx context.Context) {
	c := s.carts.Fetch(ctx)
	if c.IsEmpty() {
		fmt.Fprintln(s.out, "cart is empty")
		return
	}
	for _, item := range c.Items {
		warn := ""
		if item.OutOfStock() {
			warn = " [out of stock, remove before checkout]"
		} else if item.OverSubscribed() {
			warn = fmt.Sprintf(" [only %d in stock]", item.Product.UnitsInStock)
		}
		fmt.Fprintf(s.out, "item #%d %s x%d ¥%d%s\n", item.ID, item.Product.Name, item.Quantity, item.Product.UnitPrice, warn)
	}
	fmt.Fprintf(s.out, "subtotal ¥%s (%d items)\n", c.Subtotal().StringFixed(0), c.ItemCount())
	if c.HasStockIssues() {
		fmt.Fprintln(s.out, "some items have stock issues; fix them before checkout")
	}
}

func logLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.Set(strings.ToLower(s)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
