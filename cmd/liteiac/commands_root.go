package main

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sourceplane/liteiac/internal/config"
	"github.com/sourceplane/liteiac/internal/logging"
)

var (
	stackFile  string
	configFile string
	envFile    string
	outputFile string
	debugMode  bool
	viewPlan   string
	targets    []string
	cliVars    map[string]string
	dryRun     bool
	planFile   string
	stackName  string
	dotOutput  bool
	runsLimit  int
)

var (
	cfg    *config.Config
	logger = logr.Discard()
)

// persistentKeys are the root flags mirrored into viper
var persistentKeys = []string{
	config.KeyAccountID,
	config.KeyRegion,
	config.KeyState,
	config.KeyParallelism,
	config.KeyLogLevel,
	config.KeyBackend,
}

var rootCmd = &cobra.Command{
	Use:           "liteiac",
	Short:         "Infrastructure planner: Stack → layered Plan → Apply",
	Long:          "liteiac builds an explicit resource dependency graph from a stack, layers it into a deterministic plan and applies it layer by layer, resuming from recorded outputs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./liteiac.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file with AWS_ACCOUNT_ID / AWS_REGION")
	rootCmd.PersistentFlags().String(config.KeyAccountID, "", "Target account id (env: LITEIAC_ACCOUNT_ID or AWS_ACCOUNT_ID)")
	rootCmd.PersistentFlags().String(config.KeyRegion, "", "Target region (env: LITEIAC_REGION or AWS_REGION)")
	rootCmd.PersistentFlags().String(config.KeyState, ".liteiac/state.sqlite", "State database path")
	rootCmd.PersistentFlags().Int(config.KeyParallelism, 0, "Max concurrent creates per layer (0 = unbounded)")
	rootCmd.PersistentFlags().String(config.KeyLogLevel, "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String(config.KeyBackend, config.BackendLocal, "Provisioning backend")

	registerPlanCommand(rootCmd)
	registerApplyCommand(rootCmd)
	registerValidateCommand(rootCmd)
	registerGraphCommand(rootCmd)
	registerStateCommand(rootCmd)
	registerBlueprintCommand(rootCmd)
}

func loadConfig(cmd *cobra.Command) error {
	v := config.NewViper(configFile)
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}

	loaded, err := config.Load(v, envFile)
	if err != nil {
		return err
	}
	cfg = loaded

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	logger = log
	logger.V(1).Info("configuration loaded", "account", cfg.AccountID, "region", cfg.Region, "state", cfg.StatePath, "config", v.ConfigFileUsed())
	return nil
}

// bindFlags mirrors the persistent root flags into v so explicitly set
// flags rank above env and config file values
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, key := range persistentKeys {
		flag := flags.Lookup(key)
		if flag == nil {
			return fmt.Errorf("flag --%s is not registered", key)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

// stackVars merges config-file vars with --var flags
func stackVars() map[string]string {
	vars := make(map[string]string)
	if cfg != nil {
		for k, v := range cfg.Vars {
			vars[k] = v
		}
	}
	for k, v := range cliVars {
		vars[k] = v
	}
	return vars
}
