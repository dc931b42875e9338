package cmds

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/sqlunit/pkg/factory"
	"github.com/go-go-golems/sqlunit/pkg/provider"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	metricsRegistry = prometheus.NewRegistry()
	unitMetrics     = provider.NewMetrics(metricsRegistry)
)

func newProvider() *provider.SQLProvider {
	return provider.NewSQLProvider(
		provider.WithUnitsFile(viper.GetString("units-file")),
		provider.WithLogger(log.Logger),
		provider.WithMetrics(unitMetrics),
	)
}

// WriteMetrics writes the unit lifecycle counters collected by the commands
// in the prometheus text format. Nothing is written if path is empty.
func WriteMetrics(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, metricsRegistry); err != nil {
		return errors.Wrapf(err, "could not write metrics to %s", path)
	}
	return nil
}

// openWrapper opens the unit named by --unit, falling back to
// sqlunit.unit-name in the config file and then to the resolver. Properties
// come from sqlunit.unit-properties in the config file.
func openWrapper(p provider.Provider) (*factory.Wrapper, error) {
	unitName := viper.GetString("unit")
	if unitName == "" {
		unitName = viper.GetString(factory.UnitNameConfigKey)
	}
	props := factory.ExtractProperties(viper.GetViper(), factory.UnitPropertiesConfigKey)

	return factory.New(unitName, props,
		factory.WithProvider(p),
		factory.WithLogger(log.Logger),
	)
}

func closeWrapper(w *factory.Wrapper) {
	if err := w.Close(); err != nil {
		log.Warn().Err(err).Msg("could not close persistence unit")
	}
}

// openHandle creates a handle and runs the damper's session setup on it.
func openHandle(ctx context.Context, w *factory.Wrapper) (*provider.Handle, error) {
	h, err := w.CreateDefaultHandle(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.Damper().Prepare(ctx, h); err != nil {
		_ = h.Close()
		return nil, err
	}
	return h, nil
}

func buildCommand(c cmds.GlazeCommand) (*cobra.Command, error) {
	cobraCmd, err := cli.BuildCobraCommandFromCommand(c)
	if err != nil {
		return nil, errors.Wrapf(err, "could not build command %s", c.Description().Name)
	}
	return cobraCmd, nil
}
