package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/internal/core/port/catalog"
	catalogUC "github.com/kondukto-io/portguard/internal/core/usecase/catalog"
	riskUC "github.com/kondukto-io/portguard/internal/core/usecase/risk"
	"github.com/kondukto-io/portguard/pkg/parser"
	"github.com/kondukto-io/portguard/pkg/reporter"
	"github.com/kondukto-io/portguard/pkg/utils"
)

func initCatalogCommand() *cobra.Command {
	catalogCMD := &cobra.Command{
		Use:   "catalog",
		Short: "Query and extend the port catalog",
	}

	showCMD := &cobra.Command{
		Use:   "show <ports>",
		Short: "Show the catalog entries of ports, e.g. 22,80,4440-4450",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ports, err := parser.ParsePorts(args[0])
			if err != nil {
				qwe(exitCodeError, err)
			}

			protoFlag, _ := cmd.Flags().GetString("proto")
			protocols, err := parser.ParseProtocols(protoFlag)
			if err != nil {
				qwe(exitCodeError, err)
			}

			withCatalog(func(ctx context.Context, uc catalog.UseCase) {
				var entries []domain.PortInfo
				for _, port := range ports {
					for _, proto := range protocols {
						info, err := uc.GetPortInfo(ctx, port, proto)
						if err != nil {
							qwe(exitCodeError, err, "failed to get port info")
						}
						entries = append(entries, info)
					}
				}

				reporter.PrintPortInfo(entries)
			})
		},
	}
	showCMD.Flags().String("proto", "", "TCP || UDP (default both)")

	catalogCMD.AddCommand(
		showCMD,
		listCommand("malicious", "List ports associated with malware", func(ctx context.Context, uc catalog.UseCase, _ []string) ([]domain.PortInfo, error) {
			return uc.MaliciousPorts(ctx)
		}),
		listCommand("search <service>", "Find entries by service name", func(ctx context.Context, uc catalog.UseCase, args []string) ([]domain.PortInfo, error) {
			return uc.SearchByService(ctx, args[0])
		}),
		listCommand("category <category>", "List entries of a category", func(ctx context.Context, uc catalog.UseCase, args []string) ([]domain.PortInfo, error) {
			return uc.ByCategory(ctx, domain.PortCategory(args[0]))
		}),
		initCatalogImportCommand(),
		initCatalogExplainCommand(),
	)

	return catalogCMD
}

func withCatalog(fn func(ctx context.Context, uc catalog.UseCase)) {
	db := openStore(loadConfig())
	defer db.Close()

	fn(context.Background(), catalogUC.New(db))
}

func listCommand(use, short string, fn func(ctx context.Context, uc catalog.UseCase, args []string) ([]domain.PortInfo, error)) *cobra.Command {
	var argsCheck = cobra.NoArgs
	if use != "malicious" {
		argsCheck = cobra.ExactArgs(1)
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  argsCheck,
		Run: func(cmd *cobra.Command, args []string) {
			withCatalog(func(ctx context.Context, uc catalog.UseCase) {
				entries, err := fn(ctx, uc, args)
				if err != nil {
					qwe(exitCodeError, err, "failed to query catalog")
				}

				reporter.PrintPortInfo(entries)
			})
		},
	}
}

func initCatalogImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import catalog entries from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			f, err := os.Open(args[0])
			if err != nil {
				qwe(exitCodeError, err, "failed to open catalog file")
			}
			defer f.Close()

			entries, err := parser.ParseCatalog(f)
			if err != nil {
				qwe(exitCodeError, err)
			}

			withCatalog(func(ctx context.Context, uc catalog.UseCase) {
				if err := uc.Import(ctx, entries); err != nil {
					qwe(exitCodeError, err, "failed to import catalog")
				}
			})

			qwm(exitCodeSuccess, fmt.Sprintf("%d catalog entries imported", len(entries)))
		},
	}
}

func initCatalogExplainCommand() *cobra.Command {
	explainCMD := &cobra.Command{
		Use:   "explain <port>",
		Short: "Show how an endpoint would be classified",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			port, err := parser.ParsePort(args[0])
			if err != nil {
				qwe(exitCodeError, err)
			}

			protoFlag, _ := cmd.Flags().GetString("proto")
			proto, err := domain.ParseProtocol(protoFlag)
			if err != nil {
				qwe(exitCodeError, err)
			}

			path, _ := cmd.Flags().GetString("path")
			user, _ := cmd.Flags().GetString("user")

			var event = domain.PortEvent{
				ProcessName:    utils.BaseName(path),
				ExecutablePath: path,
				UserName:       user,
				LocalPort:      port,
				Protocol:       proto,
				EventType:      domain.PortEventOpened,
			}

			withCatalog(func(ctx context.Context, uc catalog.UseCase) {
				classifier := riskUC.New(uc)

				score, info, err := classifier.Score(ctx, event)
				if err != nil {
					qwe(exitCodeError, err, "failed to score endpoint")
				}

				data := pterm.TableData{
					{"Port", "Service", "Catalog risk", "Malicious", "Suspicious path", "System account", "Score", "Risk"},
					{
						fmt.Sprintf("%d/%s", port, proto),
						info.ServiceName,
						info.RiskLevel.String(),
						fmt.Sprint(info.IsMalicious() || uc.MatchesSignature(port, proto)),
						fmt.Sprint(riskUC.IsSuspiciousPath(path)),
						fmt.Sprint(riskUC.IsSystemAccount(user)),
						fmt.Sprint(score),
						classifier.AnalyzeRisk(ctx, event).String(),
					},
				}

				if err := pterm.DefaultTable.WithHasHeader().WithRowSeparator("-").WithHeaderRowSeparator("-").WithData(data).Render(); err != nil {
					qwe(exitCodeError, err)
				}
			})
		},
	}

	explainCMD.Flags().String("proto", "TCP", "TCP || UDP")
	explainCMD.Flags().String("path", domain.UnknownValue, "executable path")
	explainCMD.Flags().String("user", domain.UnknownValue, "user name")

	return explainCMD
}
