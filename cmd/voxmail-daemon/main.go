package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"github.com/redis/go-redis/v9"

	"voxmail/internal/assistant"
	"voxmail/internal/config"
	"voxmail/internal/gateway"
	"voxmail/internal/identity"
	"voxmail/internal/ipc"
	"voxmail/internal/mailstore"
	"voxmail/internal/proxy"
	"voxmail/internal/session"
	"voxmail/internal/speech"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address, direct when empty")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	speechMode := cli.StringP("speech", "s", "", "Speech mode: text, local or remote (overrides VOXMAIL_SPEECH)")
	listen := cli.String("listen", "", "Websocket gateway address (overrides VOXMAIL_LISTEN)")
	socket := cli.String("socket", "", "Control socket path")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("No env file loaded", "path", *envFile, "err", err)
	}

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		log.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}
	if *speechMode != "" {
		if cfg.Speech, err = speech.ParseMode(*speechMode); err != nil {
			log.Error("Invalid speech mode", "err", err)
			os.Exit(1)
		}
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient, err := proxy.NewClient(*proxyAddr)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", *proxyAddr, "err", err)
		os.Exit(1)
	}

	keys, err := newSecretSource(ctx, cfg)
	if err != nil {
		log.Error("Failed to init secrets", "err", err)
		os.Exit(1)
	}

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		log.Error("Failed to init mail store", "backend", cfg.MailBackend, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	log.Debug("Loaded mail store", "backend", cfg.MailBackend)

	user := identity.User{UID: cfg.UserUID, Name: cfg.UserName, Email: cfg.UserEmail, Username: cfg.Username}
	if err := setupUser(ctx, store, user); err != nil {
		log.Error("Failed to set up user", "uid", user.UID, "err", err)
		os.Exit(1)
	}
	ident := identity.NewLocal(user)
	ident.OnLogout(func() { log.Info("Signed out", "uid", user.UID) })

	resolver, err := newResolver(ctx, cfg, keys, httpClient)
	if err != nil {
		log.Error("Failed to init intent resolver", "resolver", cfg.Resolver, "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded resolver", "resolver", cfg.Resolver)

	var ctrl *assistant.Controller
	kit, err := newSpeech(ctx, cfg, keys, httpClient, func() string { return ctrl.Language() })
	if err != nil {
		log.Error("Failed to init speech", "mode", cfg.Speech, "err", err)
		os.Exit(1)
	}
	defer kit.Close()

	log.Debug("Loaded speech", "mode", cfg.Speech)

	var snapshots assistant.SnapshotStore
	var sess *session.Redis
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("Failed to connect to Redis", "addr", cfg.RedisAddr, "err", err)
			os.Exit(1)
		}
		sess = session.NewRedis(rdb, user.UID, cfg.SessionTTL)
		snapshots = sess
		log.Debug("Loaded session store", "addr", cfg.RedisAddr)
	}

	ctrl, err = assistant.New(assistant.Options{
		Store:          store,
		Resolver:       resolver,
		Identity:       ident,
		Output:         kit.Output,
		Input:          kit.Input,
		Snapshots:      snapshots,
		Language:       cfg.Language,
		ResolveTimeout: cfg.TurnTimeout,
	})
	if err != nil {
		log.Error("Failed to init assistant", "err", err)
		os.Exit(1)
	}
	if sess != nil {
		ctrl.AddSink(sess)
	}

	if err := ctrl.Resume(ctx); err != nil {
		log.Error("Failed to load mailbox", "err", err)
		os.Exit(1)
	}

	if cfg.ListenAddr != "" {
		gw := gateway.New(ctrl, kit.Clips, cfg.AllowedOrigins)
		ctrl.AddSink(gw)
		go serveGateway(ctx, cfg.ListenAddr, gw.Handler())
	}

	srv, err := ipc.Listen(*socket, control(ctrl))
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful", "socket", srv.Path(), "speech", cfg.Speech)

	go ctrl.Welcome(ctx)

	if err := srv.Serve(ctx); err != nil {
		log.Error("Control socket stopped", "err", err)
	}
	ctrl.Stop()
	log.Info("Shutting down")
}

// control maps socket commands onto the controller. Turns run in the
// background so the client is answered right away.
func control(ctrl *assistant.Controller) ipc.Handler {
	return func(ctx context.Context, msg ipc.ControlMessage) error {
		switch msg.Cmd {
		case ipc.CmdTrigger:
			go ctrl.Listen(ctx)
		case ipc.CmdSay:
			if msg.Text == "" {
				return errors.New("say needs text")
			}
			go ctrl.ProcessUtterance(ctx, msg.Text)
		case ipc.CmdStop:
			ctrl.Stop()
		case ipc.CmdMute:
			ctrl.SetMuted(true)
		case ipc.CmdUnmute:
			ctrl.SetMuted(false)
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			return fmt.Errorf("unknown command %q", msg.Cmd)
		}
		return nil
	}
}

func serveGateway(ctx context.Context, addr string, h http.Handler) {
	hs := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(sctx)
	}()

	log.Info("Gateway listening", "addr", addr)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Gateway stopped", "err", err)
	}
}

func setupUser(ctx context.Context, store mailstore.Store, u identity.User) error {
	if u.Username == "" {
		return store.SeedEmails(ctx, u.UID)
	}
	return store.SetupUser(ctx, mailstore.Profile{UID: u.UID, Email: u.Email, Username: u.Username})
}
