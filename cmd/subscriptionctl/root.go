package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type app struct {
	v   *viper.Viper
	cfg config
	log *zap.Logger

	configPath string
}

func newRootCommand() *cobra.Command {
	a := &app{v: newViper(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "subscriptionctl",
		Short: "Manage Subscription contract on Neo N3 network",
		Long: `subscriptionctl builds and deploys Subscription contract, sends subscription
payments and owner transactions, and follows contract notifications.

Settings are read from the configuration file (--config), SUBSCRIPTION_*
environment variables and flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(a.v, a.configPath)
			if err != nil {
				return err
			}

			l, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}

			a.cfg, a.log = cfg, l

			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}

	fs := root.PersistentFlags()
	fs.StringVarP(&a.configPath, "config", "c", "", "Path to YAML configuration file")
	fs.StringP("rpc", "r", "", "Neo RPC endpoint")
	fs.StringP("wallet", "w", "", "Path to NEP-6 wallet")
	fs.StringP("address", "a", "", "Wallet account address (default is the wallet change address)")
	fs.String("contract", "", "Subscription contract address or LE hash")
	fs.String("log-level", "", "Logging level")

	for key, flag := range map[string]string{
		cfgRPCEndpoint:   "rpc",
		cfgWalletPath:    "wallet",
		cfgWalletAddress: "address",
		cfgContract:      "contract",
		cfgLogLevel:      "log-level",
	} {
		_ = a.v.BindPFlag(key, fs.Lookup(flag))
	}

	root.AddCommand(
		a.buildCommand(),
		a.deployCommand(),
		a.subscribeCommand(),
		a.payCommand(),
		a.unsubscribeCommand(),
		a.statusCommand(),
		a.listCommand(),
		a.setFeeCommand(),
		a.withdrawCommand(),
		a.destroyCommand(),
		a.watchCommand(),
		a.reportCommand(),
	)

	return root
}
