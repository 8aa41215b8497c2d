package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/rahul/crazyagent/internal/action"
	"github.com/rahul/crazyagent/internal/agent"
	"github.com/rahul/crazyagent/internal/governance"
	"github.com/rahul/crazyagent/internal/observability"
	"github.com/rahul/crazyagent/internal/session"
	"github.com/rahul/crazyagent/internal/store"
	"github.com/rahul/crazyagent/internal/uitree"
	"github.com/rahul/crazyagent/internal/uitree/chrome"
	"github.com/rahul/crazyagent/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile      string
	providerType string
	treeFile     string
)

var rootCmd = &cobra.Command{
	Use:   "crazyagent",
	Short: "Turn natural-language phone instructions into UI actions",
	Long: `crazyagent compiles short instructions such as
"Open WhatsApp and send message to Crazy" into a plan of UI steps and
executes them against a UI tree provider:
  Instruction → Entities → Plan → Execute`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "crazyagent.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&providerType, "provider", "", "UI tree provider (memory, chrome); overrides the config")
	rootCmd.PersistentFlags().StringVar(&treeFile, "tree", "", "YAML element tree for the memory provider; overrides the config")
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if providerType != "" {
		cfg.Provider.Type = providerType
	}
	if treeFile != "" {
		cfg.Provider.TreeFile = treeFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runtime is everything a command needs to execute instructions.
type runtime struct {
	cfg     *config.Config
	logger  *observability.Logger
	holder  *uitree.Holder
	browser *chrome.Provider // set for the chrome provider
	journal *store.Journal
	session *session.Session
	closers []func() error
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// newRuntime wires the session. Events go to logger, or when it is nil to a
// logger that only writes at debug level. The rotated log file is attached
// when configured.
func newRuntime(cfg *config.Config, logger *observability.Logger) (_ *runtime, err error) {
	r := &runtime{cfg: cfg, holder: uitree.NewHolder(nil)}
	defer func() {
		if err != nil {
			_ = r.Close()
		}
	}()

	if logger == nil {
		var out io.Writer
		if cfg.Log.Level == "debug" {
			out = observability.NewTermWriter()
		}
		logger = observability.NewLogger(out)
	}
	r.logger = logger
	if cfg.Log.Path != "" {
		r.logger.WithFile(cfg.Log.Path, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	}
	r.closers = append(r.closers, r.logger.Close)

	launcher, err := r.attachProvider()
	if err != nil {
		return nil, err
	}

	policy, err := newPolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}

	r.journal, err = store.NewJournal()
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	r.closers = append(r.closers, r.journal.Close)

	exec := action.NewExecutor(r.holder, launcher,
		action.WithRetry(cfg.Executor.MaxAttempts, cfg.Executor.RetryDelay),
		action.WithDefaultWait(cfg.Executor.DefaultWait),
		action.WithPolicy(policy),
		action.WithLogger(r.logger),
	)
	r.session = session.New(agent.NewPlanBuilder(nil), exec,
		session.WithJournal(r.journal),
		session.WithLogger(r.logger),
	)
	return r, nil
}

// attachProvider connects the configured provider to the holder. A memory
// provider without a tree file leaves the holder empty, so runs report the
// service as not enabled.
func (r *runtime) attachProvider() (uitree.Launcher, error) {
	switch r.cfg.Provider.Type {
	case config.ProviderChrome:
		p := chrome.New(chrome.Options{
			Headless:   r.cfg.Provider.Headless,
			LaunchURLs: r.cfg.Provider.LaunchURLs,
		})
		r.closers = append(r.closers, p.Close)
		r.browser = p
		r.holder.Attach(p)
		return p, nil

	default:
		if r.cfg.Provider.TreeFile == "" {
			return nil, nil
		}
		tree, err := uitree.LoadTree(r.cfg.Provider.TreeFile)
		if err != nil {
			return nil, err
		}
		r.holder.Attach(tree)
		return tree, nil
	}
}

func newPolicy(cfg config.PolicyConfig) (*governance.DefaultPolicyEngine, error) {
	policy := governance.NewDefaultPolicyEngine()
	for _, kind := range cfg.DenyActions {
		policy.DenyAction(kind)
	}
	for _, pkg := range cfg.DenyPackages {
		policy.DenyPackage(pkg)
	}
	for _, pattern := range cfg.DenyText {
		if err := policy.DenyText(pattern); err != nil {
			return nil, fmt.Errorf("invalid policy.deny_text pattern %q: %w", pattern, err)
		}
	}
	return policy, nil
}
