package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"omnitui/internal/auth"
	"omnitui/internal/config"
	"omnitui/internal/dataservice"
	"omnitui/internal/digest"
	"omnitui/internal/feeds"
	"omnitui/internal/httpclient"
	"omnitui/internal/launchd"
	"omnitui/internal/list"
	"omnitui/internal/models"
	"omnitui/internal/offline"
	"omnitui/internal/reader"
	"omnitui/internal/server"
	"omnitui/internal/settings"
	"omnitui/internal/setup"
	"omnitui/internal/tui"
	"omnitui/internal/version"
	"omnitui/internal/webpage"
)

func main() {
	app := &cli.Command{
		Name:    "omnitui",
		Usage:   "Read your Omnivore library from the terminal",
		Version: version.Version,
		Action:  runTUI,
		Commands: []*cli.Command{
			{
				Name:   "tui",
				Usage:  "Browse your library (default)",
				Action: runTUI,
			},
			{
				Name:  "login",
				Usage: "Log in with an API key",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Usage: "API key; omit to run the interactive setup"},
				},
				Action: runLogin,
			},
			{
				Name:  "logout",
				Usage: "Remove stored credentials and the local cache",
				Action: func(ctx context.Context, c *cli.Command) error {
					e, err := loadEnv(false)
					if err != nil {
						return err
					}
					svc, err := e.service()
					if err != nil {
						return err
					}
					defer svc.Close()
					if err := auth.NewSession(e.store, svc, e.logger).Logout(ctx); err != nil {
						return err
					}
					fmt.Println("Logged out.")
					return nil
				},
			},
			{
				Name:  "whoami",
				Usage: "Show the logged-in account",
				Action: withService(func(ctx context.Context, c *cli.Command, svc *dataservice.Service) error {
					v, err := svc.CurrentViewer(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("%s (@%s)\n", v.Name, v.Username)
					return nil
				}),
			},
			{
				Name:  "list",
				Usage: "List saved articles",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Usage: "search query", Value: "in:inbox"},
					&cli.IntFlag{Name: "limit", Usage: "maximum number of articles", Value: 20},
					&cli.BoolFlag{Name: "offline", Usage: "read from the local cache only"},
				},
				Action: withService(func(ctx context.Context, c *cli.Command, svc *dataservice.Service) error {
					return list.Run(ctx, svc, list.Options{
						Query:   c.String("query"),
						Limit:   c.Int("limit"),
						Offline: c.Bool("offline"),
					}, os.Stdout)
				}),
			},
			{
				Name:  "labels",
				Usage: "List labels",
				Action: withService(func(ctx context.Context, c *cli.Command, svc *dataservice.Service) error {
					return list.Labels(ctx, svc, os.Stdout)
				}),
			},
			{
				Name:  "read",
				Usage: "Print an article as formatted text",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "slug", UsageText: "slug"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "width", Usage: "wrap width", Value: 80},
				},
				Action: withService(func(ctx context.Context, c *cli.Command, svc *dataservice.Service) error {
					slug := strings.TrimSpace(c.StringArg("slug"))
					if slug == "" {
						return fmt.Errorf("a slug is required")
					}
					item, err := svc.Item(ctx, slug)
					if err != nil {
						item = models.FeedItem{Slug: slug}
					}
					r := reader.New(item, svc, nil, nil)
					load := r.Begin(ctx)
					html, err := load()
					if err != nil {
						return err
					}
					fmt.Print(reader.Render(html, item.URL, c.Int("width")))
					return nil
				}),
			},
			{
				Name:  "save",
				Usage: "Save a url to your library",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url", UsageText: "url"},
				},
				Action: withService(func(ctx context.Context, c *cli.Command, svc *dataservice.Service) error {
					res, err := svc.SaveURL(ctx, c.StringArg("url"))
					if err != nil {
						return err
					}
					fmt.Printf("Saved %s\n", res.URL)
					return nil
				}),
			},
			{
				Name:  "subscribe",
				Usage: "Preview an RSS feed and subscribe to it",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url", UsageText: "feed url"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "subscribe without the preview"},
				},
				Action: withService(func(ctx context.Context, c *cli.Command, svc *dataservice.Service) error {
					feedURL := strings.TrimSpace(c.StringArg("url"))
					if !c.Bool("yes") {
						pv, err := feeds.NewPreviewer(&http.Client{Timeout: 15 * time.Second}).Preview(ctx, feedURL, 5)
						if err != nil {
							return err
						}
						fmt.Println(pv.String())
					}
					subs, err := svc.Subscribe(ctx, feedURL)
					if err != nil {
						return err
					}
					for _, s := range subs {
						fmt.Printf("Subscribed to %s (%s)\n", s.Name, s.URL)
					}
					return nil
				}),
			},
			{
				Name:  "digest",
				Usage: "Summarise an article with an LLM",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "slug", UsageText: "slug"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					e, err := loadEnv(false)
					if err != nil {
						return err
					}
					if err := e.requireLogin(); err != nil {
						return err
					}
					svc, err := e.service()
					if err != nil {
						return err
					}
					defer svc.Close()
					return digest.Run(ctx, c.StringArg("slug"), e.cfg.AIConf, svc, os.Stdout)
				},
			},
			{
				Name:  "sync",
				Usage: "Download your library for offline reading",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "max-items", Usage: "override sync.max_items"},
					&cli.StringFlag{Name: "log-file", Usage: "path to the sync log file"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					e, err := loadEnv(false)
					if err != nil {
						return err
					}
					if err := e.requireLogin(); err != nil {
						return err
					}
					res, err := offline.Run(ctx, offline.Options{
						LogFile:  c.String("log-file"),
						MaxItems: c.Int("max-items"),
					}, config.AppConfigLoader(), e.store)
					fmt.Printf("synced %d items, fetched %d articles, %d failed\n", res.Items, res.Fetched, res.Failed)
					return err
				},
			},
			{
				Name:  "daemon",
				Usage: "Manage the scheduled sync agent",
				Commands: []*cli.Command{
					{
						Name:  "install",
						Usage: "Install launchd agent (macOS)",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "label", Value: launchd.DefaultLabel, Usage: "launchd label"},
							&cli.IntFlag{Name: "interval-minutes", Value: 30, Usage: "interval minutes"},
							&cli.StringFlag{Name: "log-file", Usage: "agent log file path"},
							&cli.StringFlag{Name: "plist", Usage: "custom plist path (default ~/Library/LaunchAgents/<label>.plist)"},
						},
						Action: func(ctx context.Context, c *cli.Command) error {
							exe, _ := os.Executable()
							if strings.TrimSpace(exe) == "" {
								return fmt.Errorf("cannot discover program path")
							}
							logPath := c.String("log-file")
							if logPath == "" {
								logPath = filepath.Join(filepath.Dir(config.DefaultLogFile()), "sync.launchd.log")
							}
							path, err := launchd.Install(launchd.InstallOptions{
								Label:           c.String("label"),
								IntervalMinutes: c.Int("interval-minutes"),
								ProgramPath:     exe,
								ProgramArgs:     []string{"sync"},
								LogPath:         logPath,
								PlistPath:       c.String("plist"),
							})
							if err != nil {
								return err
							}
							fmt.Printf("launchd agent installed and loaded: %s\n", path)
							return nil
						},
					},
					{
						Name:  "uninstall",
						Usage: "Uninstall launchd agent (macOS)",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "label", Value: launchd.DefaultLabel, Usage: "launchd label"},
							&cli.StringFlag{Name: "plist", Usage: "path to plist (default ~/Library/LaunchAgents/<label>.plist)"},
						},
						Action: func(ctx context.Context, c *cli.Command) error {
							if err := launchd.Uninstall(c.String("label"), c.String("plist")); err != nil {
								return err
							}
							fmt.Println("launchd agent unloaded and removed")
							return nil
						},
					},
					{
						Name:  "status",
						Usage: "Show whether the agent is loaded",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "label", Value: launchd.DefaultLabel, Usage: "launchd label"},
						},
						Action: func(ctx context.Context, c *cli.Command) error {
							loaded, detail := launchd.Status(c.String("label"))
							fmt.Printf("loaded: %v\n%s\n", loaded, detail)
							return nil
						},
					},
				},
			},
			{
				Name:  "server",
				Usage: "Run MCP server on stdio",
				Action: func(ctx context.Context, c *cli.Command) error {
					// stdout carries the protocol
					e, err := loadEnv(true)
					if err != nil {
						return err
					}
					defer e.close()
					if err := e.requireLogin(); err != nil {
						return err
					}
					svc, err := e.service()
					if err != nil {
						return err
					}
					defer svc.Close()
					return server.New(svc, version.Version).Run(ctx)
				},
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(ctx context.Context, c *cli.Command) error {
					fmt.Println(version.GetVersion())
					return nil
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// withService runs fn with a data service for a logged-in account.
func withService(fn func(context.Context, *cli.Command, *dataservice.Service) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		e, err := loadEnv(false)
		if err != nil {
			return err
		}
		if err := e.requireLogin(); err != nil {
			return err
		}
		svc, err := e.service()
		if err != nil {
			return err
		}
		defer svc.Close()
		return fn(ctx, c, svc)
	}
}

func runTUI(ctx context.Context, c *cli.Command) error {
	e, err := loadEnv(true)
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.requireLogin(); err != nil {
		return err
	}
	svc, err := e.service()
	if err != nil {
		return err
	}
	defer svc.Close()

	session := auth.NewSession(e.store, svc, e.logger)
	hc := httpclient.New(time.Duration(e.cfg.RequestTimeoutSec) * time.Second)
	return tui.Run(ctx, tui.Options{
		Service:  svc,
		Settings: settings.New(session, svc, version.Version, settings.DefaultLinks(e.cfg.WebURL), e.logger),
		Pages:    webpage.New(hc, e.logger),
		OpenURL:  setup.OpenBrowser,
		Logger:   e.logger,
	})
}

func runLogin(ctx context.Context, c *cli.Command) error {
	e, err := loadEnv(false)
	if err != nil {
		return err
	}

	login := func(ctx context.Context, apiURL, apiKey string) (*models.Viewer, error) {
		cfg := e.cfg
		if strings.TrimSpace(apiURL) != "" {
			cfg.APIURL = apiURL
		}
		svc, err := dataservice.Open(cfg, e.store, e.logger)
		if err != nil {
			return nil, err
		}
		defer svc.Close()
		return auth.NewSession(e.store, svc, e.logger).Login(ctx, apiKey)
	}

	if key := strings.TrimSpace(c.String("key")); key != "" {
		v, err := login(ctx, e.cfg.APIURL, key)
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s (@%s)\n", v.Name, v.Username)
		return nil
	}

	cfgPath, err := config.Path()
	if err != nil {
		return err
	}
	_, statErr := os.Stat(cfgPath)
	return setup.Run(ctx, setup.Deps{
		Login:        login,
		ConfigExists: statErr == nil,
		WebURL:       e.cfg.WebURL,
	})
}
