// Package commands wires configuration, logging and the analysis session
// into the emotion-analyzer CLI.
package commands

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codexlabs/emotion-analyzer/clients"
	cfg "github.com/codexlabs/emotion-analyzer/config"
	"github.com/codexlabs/emotion-analyzer/render"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	conf    *cfg.Root
	log     *logrus.Logger
}

func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:          "emotion-analyzer",
		Short:        "Classify the emotion in recorded speech",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default config/$CONFIG_ENV/config.yaml)")
	pf.String("log-level", "", "override app.log_level")
	_ = a.v.BindPFlag("app.log_level", pf.Lookup("log-level"))

	root.AddCommand(
		newAnalyzeCmd(a),
		newServeCmd(a),
		newLanguagesCmd(),
		newPromptsCmd(),
		newSchemaCmd(),
		newConfigCmd(a),
		newFeedbackStatsCmd(a),
	)
	return root
}

func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) load(cmd *cobra.Command) error {
	c, err := cfg.LoadWith(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.conf = c
	a.log = newLogger(c.App, cmd.ErrOrStderr())
	a.log.WithFields(logrus.Fields{
		"config":  a.v.ConfigFileUsed(),
		"version": c.App.Version,
	}).Debug("config loaded")
	return nil
}

func newLogger(c cfg.App, w io.Writer) *logrus.Logger {
	lg := logrus.New()
	lg.SetOutput(w)
	if lvl, err := logrus.ParseLevel(c.LogLvl); err == nil {
		lg.SetLevel(lvl)
	}
	if c.LogFormat == "json" {
		lg.SetFormatter(&logrus.JSONFormatter{})
	} else {
		lg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return lg
}

func (a *app) classifier() *clients.EmotionClient {
	in := a.conf.Inference
	return clients.NewEmotionClient(clients.EmotionOptions{
		Endpoint:      in.Endpoint,
		Model:         in.Model,
		APIKey:        in.APIKey,
		Timeout:       in.Timeout,
		MaxAudioBytes: a.conf.Audio.Limit(),
		Backoff: clients.Backoff{
			MaxRetries: in.MaxRetries,
			BaseDelay:  in.BaseDelay,
			MaxDelay:   in.MaxDelay,
			Jitter:     in.Jitter,
		},
	}, a.log)
}

func barWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		return render.BarWidth(f)
	}
	return render.DefaultBarWidth
}
