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
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type QueryCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*QueryCommand)(nil)

type QuerySettings struct {
	Query string   `glazed.parameter:"query"`
	Args  []string `glazed.parameter:"args"`
}

func NewQueryCommand() (*QueryCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	return &QueryCommand{
		CommandDescription: cmds.NewCommandDescription(
			"query",
			cmds.WithShort("Run a SQL query passed as a CLI argument"),
			cmds.WithLong("Run a SQL query on a fresh handle of the persistence unit. "+
				"Use ? placeholders, they are rebound for the unit's driver."),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"query",
					parameters.ParameterTypeString,
					parameters.WithHelp("The SQL query to run"),
					parameters.WithRequired(true),
				),
				parameters.NewParameterDefinition(
					"args",
					parameters.ParameterTypeStringList,
					parameters.WithHelp("Values for the query placeholders"),
					parameters.WithDefault([]string{}),
				),
			),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (q *QueryCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	s := &QuerySettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return err
	}

	w, err := openWrapper(newProvider())
	if err != nil {
		return err
	}
	defer closeWrapper(w)

	return runQuery(ctx, w, s.Query, s.Args, gp)
}

func runQuery(ctx context.Context, w *factory.Wrapper, query string, args []string, gp middlewares.Processor) error {
	h, err := openHandle(ctx, w)
	if err != nil {
		return err
	}
	defer func() {
		_ = h.Close()
	}()

	query = w.Damper().Rebind(query)
	params := make([]interface{}, 0, len(args))
	for _, a := range args {
		params = append(params, a)
	}

	rows, err := h.Conn.QueryxContext(ctx, query, params...)
	if err != nil {
		return errors.Wrapf(err, "Could not execute query: %s", query)
	}
	defer func() {
		_ = rows.Close()
	}()

	return processQueryResults(ctx, rows, gp)
}

func processQueryResults(ctx context.Context, rows *sqlx.Rows, gp middlewares.Processor) error {
	// we need a way to order the columns
	cols, err := rows.Columns()
	if err != nil {
		return errors.Wrapf(err, "Could not get columns")
	}

	for rows.Next() {
		values := map[string]interface{}{}
		err = rows.MapScan(values)
		if err != nil {
			return errors.Wrapf(err, "Could not scan row")
		}

		row := types.NewRow()
		for _, col := range cols {
			switch value := values[col].(type) {
			case []byte:
				row.Set(col, string(value))
			default:
				row.Set(col, value)
			}
		}

		err = gp.AddRow(ctx, row)
		if err != nil {
			return errors.Wrapf(err, "Could not process input object")
		}
	}

	return rows.Err()
}
