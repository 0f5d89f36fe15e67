package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/internal/core/port/rule"
	firewallUC "github.com/kondukto-io/portguard/internal/core/usecase/firewall"
	"github.com/kondukto-io/portguard/pkg/parser"
	"github.com/kondukto-io/portguard/pkg/reporter"
	"github.com/kondukto-io/portguard/pkg/utils"
)

func initRulesCommand() *cobra.Command {
	rulesCMD := &cobra.Command{
		Use:   "rules",
		Short: "Manage portguard firewall rules",
	}

	listCMD := &cobra.Command{
		Use:   "list",
		Short: "List firewall rules",
		Run: func(cmd *cobra.Command, args []string) {
			withRules(func(ctx context.Context, uc rule.UseCase) {
				active, _ := cmd.Flags().GetBool("active")

				var list = uc.List
				if active {
					list = uc.ListActive
				}

				rules, err := list(ctx)
				if err != nil {
					qwe(exitCodeError, err, "failed to list rules")
				}

				reporter.PrintRules(rules)
			})
		},
	}
	listCMD.Flags().Bool("active", false, "only list enabled rules")

	rulesCMD.AddCommand(
		listCMD,
		processPortCommand("allow", domain.ActionAllow),
		processPortCommand("block", domain.ActionBlock),
		idCommand("delete", "Delete a rule", func(ctx context.Context, uc rule.UseCase, id int64) error {
			return uc.Delete(ctx, id)
		}),
		idCommand("enable", "Enable a rule", func(ctx context.Context, uc rule.UseCase, id int64) error {
			return uc.SetEnabled(ctx, id, true)
		}),
		idCommand("disable", "Disable a rule", func(ctx context.Context, uc rule.UseCase, id int64) error {
			return uc.SetEnabled(ctx, id, false)
		}),
		&cobra.Command{
			Use:   "restore",
			Short: "Remove every portguard rule from the firewall",
			Run: func(cmd *cobra.Command, args []string) {
				withRules(func(ctx context.Context, uc rule.UseCase) {
					if err := uc.RestoreDefaultRules(ctx); err != nil {
						qwe(exitCodeError, err, "failed to restore default rules")
					}
				})
			},
		},
	)

	return rulesCMD
}

func withRules(fn func(ctx context.Context, uc rule.UseCase)) {
	cfg := loadConfig()
	db := openStore(cfg)
	defer db.Close()

	fn(context.Background(), newRuleManager(cfg, db))
}

func processPortCommand(use string, action domain.RuleAction) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("%s an executable and/or a port", action),
		Run: func(cmd *cobra.Command, args []string) {
			path, _ := cmd.Flags().GetString("path")
			portFlag, _ := cmd.Flags().GetString("port")
			protoFlag, _ := cmd.Flags().GetString("proto")
			scopeFlag, _ := cmd.Flags().GetString("scope")

			var port *uint32
			if portFlag != "" {
				p, err := parser.ParsePort(portFlag)
				if err != nil {
					qwe(exitCodeError, err)
				}
				port = &p
			}

			proto, err := domain.ParseProtocol(protoFlag)
			if err != nil {
				qwe(exitCodeError, err)
			}

			cfg := loadConfig()

			// the configured default scope applies unless --scope is given
			var scope = cfg.App.DefaultRuleScope
			if scopeFlag != "" {
				scope = domain.RuleScope(scopeFlag)
			}

			r, err := domain.ScopedRule(action, scope, path, port, proto)
			if err != nil {
				qwe(exitCodeError, err)
			}
			r.Description = fmt.Sprintf("%s %s (%s)", action, describeTarget(r.ProcessPath, r.LocalPort, proto), r.Scope)

			db := openStore(cfg)
			defer db.Close()

			if err := newRuleManager(cfg, db).Create(context.Background(), &r); err != nil {
				qwe(exitCodeError, err, "failed to create rule")
			}

			reporter.PrintRules([]domain.FirewallRule{r})
		},
	}

	cmd.Flags().String("path", "", "executable path")
	cmd.Flags().String("port", "", "local port")
	cmd.Flags().String("proto", "TCP", "TCP || UDP")
	cmd.Flags().String("scope", "", "ProcessAndPort || ProcessAllPorts || PortAllProcesses || Custom (default: configured default_rule_scope)")

	return cmd
}

func describeTarget(path string, port *uint32, proto domain.Protocol) string {
	switch {
	case path != "" && port != nil:
		return fmt.Sprintf("%s on %s port %d", utils.BaseName(path), proto, *port)
	case port != nil:
		return fmt.Sprintf("%s port %d", proto, *port)
	}

	return utils.BaseName(path)
}

func idCommand(use, short string, fn func(ctx context.Context, uc rule.UseCase, id int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				qwe(exitCodeError, err, "invalid rule id")
			}

			withRules(func(ctx context.Context, uc rule.UseCase) {
				if err := fn(ctx, uc, id); err != nil {
					if firewallUC.IsNotFound(err) {
						qwm(exitCodeError, fmt.Sprintf("rule [%d] not found", id))
					}
					qwe(exitCodeError, err, "failed to "+use+" rule")
				}

				qwm(exitCodeSuccess, fmt.Sprintf("rule [%d] %sd", id, use))
			})
		},
	}
}
