package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/andreazorzetto/yh/highlight"
	"github.com/hokaccha/go-prettyjson"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"gopkg.in/yaml.v3"

	"github.com/looplj/lakegate/conf"
	"github.com/looplj/lakegate/internal/authz"
	"github.com/looplj/lakegate/internal/build"
	"github.com/looplj/lakegate/internal/log"
	"github.com/looplj/lakegate/internal/server"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			handleConfigCommand()
			return
		case "version", "--version", "-v":
			showVersion()
			return
		case "help", "--help", "-h":
			showHelp()
			return
		case "build-info":
			showBuildInfo()
			return
		}
	}

	startServer()
}

func showBuildInfo() {
	fmt.Println(build.GetBuildInfo())
}

type logger struct{}

func (l *logger) LogEvent(event fxevent.Event) {
	log.Debug(context.Background(), "fx event", log.Any("event", event))
}

func startServer() {
	// Every log entry carries the acting principal when one is in context.
	log.RegisterHook(log.HookFunc(func(ctx context.Context, _ string) []log.Field {
		if p, ok := authz.GetPrincipal(ctx); ok {
			return []log.Field{log.String("principal", p.String())}
		}

		return nil
	}))

	server.Run(
		fx.WithLogger(func() fxevent.Logger {
			return &logger{}
		}),
		conf.Module,
		fx.Invoke(func(cfg conf.Config) error {
			l, err := log.New(cfg.Log)
			if err != nil {
				return err
			}

			log.SetGlobal(l)

			return nil
		}),
		fx.Invoke(func(lc fx.Lifecycle, srv *server.Server) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go func() {
						err := srv.Run()
						if err != nil {
							log.Error(context.Background(), "server run error:", log.Cause(err))
							os.Exit(1)
						}
					}()

					return nil
				},
				OnStop: func(ctx context.Context) error {
					err := srv.Shutdown(ctx)
					if err != nil {
						log.Error(context.Background(), "server shutdown error:", log.Cause(err))
					}

					return nil
				},
			})
		}),
	)
}

func handleConfigCommand() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: lakegate config <preview|validate|get>")
		os.Exit(1)
	}

	switch os.Args[2] {
	case "preview":
		configPreview()
	case "validate":
		configValidate()
	case "get":
		configGet()
	default:
		fmt.Println("Usage: lakegate config <preview|validate|get>")
		os.Exit(1)
	}
}

func configPreview() {
	format := "yml"

	for i := 3; i < len(os.Args); i++ {
		if os.Args[i] == "--format" || os.Args[i] == "-f" {
			if i+1 < len(os.Args) {
				format = os.Args[i+1]
			}
		}
	}

	config, err := conf.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var output string

	switch format {
	case "json":
		b, err := prettyjson.Marshal(config)
		if err != nil {
			fmt.Printf("Failed to preview config: %v\n", err)
			os.Exit(1)
		}

		output = string(b)
	case "yml", "yaml":
		b, err := yaml.Marshal(config)
		if err != nil {
			fmt.Printf("Failed to preview config: %v\n", err)
			os.Exit(1)
		}

		output, err = highlight.Highlight(bytes.NewBuffer(b))
		if err != nil {
			fmt.Printf("Failed to preview config: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("Unsupported format: %s\n", format)
		os.Exit(1)
	}

	fmt.Println(output)
}

func configValidate() {
	config, err := conf.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	errors := validateConfig(config)

	if len(errors) == 0 {
		fmt.Println("Configuration is valid!")
		return
	}

	fmt.Println("Configuration validation failed:")

	for _, err := range errors {
		fmt.Printf("  - %s\n", err)
	}

	os.Exit(1)
}

func validateConfig(config conf.Config) []string {
	var errors []string

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errors = append(errors, "server.port must be between 1 and 65535")
	}

	if config.DB.DSN == "" {
		errors = append(errors, "db.dsn cannot be empty")
	}

	if config.Log.Name == "" {
		errors = append(errors, "log.name cannot be empty")
	}

	if config.Server.CORS.Enabled && len(config.Server.CORS.AllowedOrigins) == 0 {
		errors = append(errors, "server.cors.allowed_origins cannot be empty when CORS is enabled")
	}

	if config.Server.Auth.TrustRoleHeader && config.Server.Auth.RoleHeader == "" {
		errors = append(errors, "server.auth.role_header cannot be empty when header auth is trusted")
	}

	return errors
}

func configGet() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: lakegate config get <key>")
		fmt.Println("")
		fmt.Println("Available keys:")
		fmt.Println("  server.port    Server port number")
		fmt.Println("  server.name    Server name")
		fmt.Println("  db.dialect     Database dialect")
		fmt.Println("  db.dsn         Database DSN")
		os.Exit(1)
	}

	key := os.Args[3]

	config, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var value interface{}

	switch key {
	case "server.port":
		value = config.Server.Port
	case "server.name":
		value = config.Server.Name
	case "server.base_path":
		value = config.Server.BasePath
	case "server.debug":
		value = config.Server.Debug
	case "db.dialect":
		value = config.DB.Dialect
	case "db.dsn":
		value = config.DB.DSN
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}

	fmt.Println(value)
}

func showHelp() {
	fmt.Println("lakegate data-lake governance gateway")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  lakegate                   Start the server (default)")
	fmt.Println("  lakegate config preview    Preview configuration")
	fmt.Println("  lakegate config validate   Validate configuration")
	fmt.Println("  lakegate config get <key>  Get a specific config value")
	fmt.Println("  lakegate version           Show version")
	fmt.Println("  lakegate help              Show this help message")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -f, --format FORMAT       Output format for config preview (yml, json)")
}

func showVersion() {
	fmt.Println(build.Version)
}
