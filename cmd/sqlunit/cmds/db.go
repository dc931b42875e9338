package cmds

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/go-go-golems/sqlunit/pkg/factory"
	"github.com/go-go-golems/sqlunit/pkg/provider"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func NewDbCommand() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage databases",
	}

	testCommand, err := NewDbTestCommand()
	if err != nil {
		return nil, err
	}
	tablesCommand, err := NewDbTablesCommand()
	if err != nil {
		return nil, err
	}
	countCommand, err := NewDbCountCommand()
	if err != nil {
		return nil, err
	}

	for _, c := range []cmds.GlazeCommand{testCommand, tablesCommand, countCommand} {
		cobraCmd, err := buildCommand(c)
		if err != nil {
			return nil, err
		}
		cmd.AddCommand(cobraCmd)
	}

	return cmd, nil
}

type DbTestCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*DbTestCommand)(nil)

type DbTestSettings struct {
	All         bool `glazed.parameter:"all"`
	Concurrency int  `glazed.parameter:"concurrency"`
}

func NewDbTestCommand() (*DbTestCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	return &DbTestCommand{
		CommandDescription: cmds.NewCommandDescription(
			"test",
			cmds.WithShort("Test the connection to a persistence unit"),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"all",
					parameters.ParameterTypeBool,
					parameters.WithHelp("Test every unit in the units file"),
					parameters.WithDefault(false),
				),
				parameters.NewParameterDefinition(
					"concurrency",
					parameters.ParameterTypeInteger,
					parameters.WithHelp("Number of units tested at the same time"),
					parameters.WithDefault(4),
				),
			),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *DbTestCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	s := &DbTestSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return err
	}

	p := newProvider()
	if !s.All {
		w, err := openWrapper(p)
		if err != nil {
			return err
		}
		defer closeWrapper(w)

		if err := pingUnit(ctx, w); err != nil {
			return err
		}
		return gp.AddRow(ctx, types.NewRow(
			types.MRP("provider", w.Factory().ProviderID()),
			types.MRP("result", "ok"),
		))
	}

	return testAllUnits(ctx, p, s.Concurrency, gp)
}

// testAllUnits pings every unit of p. A failing unit is reported in its
// row and does not stop the others.
func testAllUnits(ctx context.Context, p *provider.SQLProvider, concurrency int, gp middlewares.Processor) error {
	us, err := p.Units()
	if err != nil {
		return err
	}
	names := us.Names()
	results := make([]string, len(names))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, name := range names {
		g.Go(func() error {
			w, err := factory.NewWithUnitName(name,
				factory.WithProvider(p),
				factory.WithLogger(log.Logger),
			)
			if err != nil {
				results[i] = err.Error()
				return nil
			}
			defer closeWrapper(w)

			if err := pingUnit(gctx, w); err != nil {
				results[i] = err.Error()
				return nil
			}
			results[i] = "ok"
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, name := range names {
		err := gp.AddRow(ctx, types.NewRow(
			types.MRP("unit", name),
			types.MRP("driver", us[name].Driver),
			types.MRP("result", results[i]),
		))
		if err != nil {
			return err
		}
	}
	return nil
}

func pingUnit(ctx context.Context, w *factory.Wrapper) error {
	h, err := openHandle(ctx, w)
	if err != nil {
		return err
	}
	defer func() {
		_ = h.Close()
	}()

	if err := h.Conn.PingContext(ctx); err != nil {
		return errors.Wrap(err, "could not ping database")
	}
	return nil
}

type DbTablesCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*DbTablesCommand)(nil)

func NewDbTablesCommand() (*DbTablesCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	return &DbTablesCommand{
		CommandDescription: cmds.NewCommandDescription(
			"tables",
			cmds.WithShort("List the tables of a persistence unit"),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *DbTablesCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	w, err := openWrapper(newProvider())
	if err != nil {
		return err
	}
	defer closeWrapper(w)

	return listTables(ctx, w, gp)
}

func listTables(ctx context.Context, w *factory.Wrapper, gp middlewares.Processor) error {
	h, err := openHandle(ctx, w)
	if err != nil {
		return err
	}
	defer func() {
		_ = h.Close()
	}()

	query, qargs, err := w.Damper().ListTablesQuery()
	if err != nil {
		return errors.Wrap(err, "could not build table list query")
	}

	var tables []string
	if err := h.Conn.SelectContext(ctx, &tables, query, qargs...); err != nil {
		return errors.Wrapf(err, "could not run query: %s", query)
	}
	for _, t := range tables {
		if err := gp.AddRow(ctx, types.NewRow(types.MRP("name", t))); err != nil {
			return err
		}
	}
	return nil
}

type DbCountCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*DbCountCommand)(nil)

type DbCountSettings struct {
	Table string `glazed.parameter:"table"`
}

func NewDbCountCommand() (*DbCountCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	return &DbCountCommand{
		CommandDescription: cmds.NewCommandDescription(
			"count",
			cmds.WithShort("Count the rows of a table"),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"table",
					parameters.ParameterTypeString,
					parameters.WithHelp("The table to count"),
					parameters.WithRequired(true),
				),
			),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *DbCountCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	s := &DbCountSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return err
	}

	w, err := openWrapper(newProvider())
	if err != nil {
		return err
	}
	defer closeWrapper(w)

	return countRows(ctx, w, s.Table, gp)
}

func countRows(ctx context.Context, w *factory.Wrapper, table string, gp middlewares.Processor) error {
	h, err := openHandle(ctx, w)
	if err != nil {
		return err
	}
	defer func() {
		_ = h.Close()
	}()

	query, qargs := w.Damper().CountQuery(table)
	var count int64
	if err := h.Conn.GetContext(ctx, &count, query, qargs...); err != nil {
		return errors.Wrapf(err, "could not run query: %s", query)
	}
	return gp.AddRow(ctx, types.NewRow(
		types.MRP("table", table),
		types.MRP("count", count),
	))
}
