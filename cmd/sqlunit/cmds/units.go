package cmds

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/middlewares/row"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/go-go-golems/sqlunit/pkg/units"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// the dsn usually embeds the password as well
var hiddenUnitFields = []string{"password", "dsn"}

type UnitsListCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*UnitsListCommand)(nil)

func NewUnitsListCommand() (*UnitsListCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	return &UnitsListCommand{
		CommandDescription: cmds.NewCommandDescription(
			"ls",
			cmds.WithShort("List the persistence units"),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *UnitsListCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	us, err := newProvider().Units()
	if err != nil {
		return err
	}

	rows, err := unitRows(ctx, us)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := gp.AddRow(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func unitRows(ctx context.Context, us units.Units) ([]types.Row, error) {
	// don't output the password
	filter := row.NewFieldsFilterMiddleware(row.WithFilters(hiddenUnitFields))

	var ret []types.Row
	for _, name := range us.Names() {
		u := us[name]
		props, err := jsoniter.MarshalToString(u.Properties)
		if err != nil {
			return nil, errors.Wrapf(err, "could not encode properties of unit %s", name)
		}

		r := types.NewRow(
			types.MRP("name", name),
			types.MRP("driver", u.Driver),
			types.MRP("host", u.Host),
			types.MRP("port", u.Port),
			types.MRP("user", u.User),
			types.MRP("password", u.Password),
			types.MRP("database", u.Database),
			types.MRP("schema", u.Schema),
			types.MRP("dsn", u.DSN),
			types.MRP("properties", props),
		)
		filtered, err := filter.Process(ctx, r)
		if err != nil {
			return nil, err
		}
		ret = append(ret, filtered...)
	}
	return ret, nil
}

func NewUnitsCommand() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "units",
		Short: "Inspect the persistence units file",
	}

	lsCommand, err := NewUnitsListCommand()
	if err != nil {
		return nil, err
	}
	lsCmd, err := buildCommand(lsCommand)
	if err != nil {
		return nil, err
	}
	cmd.AddCommand(lsCmd)

	return cmd, nil
}
