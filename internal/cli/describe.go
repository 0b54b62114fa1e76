package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/peak-solution/openatfx-sub003/internal/engine"
	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/schema"
)

// DescribeOptions holds flags for the describe command.
type DescribeOptions struct {
	*RootOptions
	ModelDir string
}

// ElementSummary is one line of the element listing.
type ElementSummary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	BaseType   string `json:"base_type"`
	Attributes int    `json:"attributes"`
	Relations  int    `json:"relations"`
}

// ModelDescription lists the elements and enumerations of a model.
type ModelDescription struct {
	Elements     []ElementSummary     `json:"elements"`
	Enumerations []*model.Enumeration `json:"enumerations,omitempty"`
}

// ElementDescription describes one element in full.
type ElementDescription struct {
	*model.Element
	Wildcard     []string             `json:"wildcard"`
	Enumerations []*model.Enumeration `json:"enumerations,omitempty"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DescribeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "describe [element]",
		Short: "Describe the meta-model",
		Long: `Describe the meta-model stored in --db, or compiled from --model.

Without an element name, lists every element and enumeration. With one,
prints its attributes, relations with their ranges, the enumerations it
uses, and the columns a "*" select expands to.

Examples:
  odsq describe --db measurements.db
  odsq describe Measurement --model ./model`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			element := ""
			if len(args) == 1 {
				element = args[0]
			}
			return runDescribe(opts, element, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ModelDir, "model", "", "CUE model directory (default: model stored in --db)")

	return cmd
}

func runDescribe(opts *DescribeOptions, element string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var m *model.Model
	if opts.ModelDir != "" {
		var err error
		if m, err = schema.LoadModelDir(opts.ModelDir); err != nil {
			return formatter.Fail(ErrCodeLoadFailed, "failed to load model", err)
		}
	} else {
		st, err := openModelStore(opts.RootOptions, formatter)
		if err != nil {
			return err
		}
		m = st.Model()
		st.Close()
	}

	if element == "" {
		desc := describeModel(m)
		if opts.Format == "json" {
			return formatter.Success(desc)
		}
		return renderModel(cmd.OutOrStdout(), desc)
	}

	elem := m.Element(element)
	if elem == nil {
		return formatter.Fail(ErrCodeNotFound, "unknown element", queryerr.NotFound("element %q not found", element).WithElement(element))
	}
	desc := describeElement(m, elem)
	if opts.Format == "json" {
		return formatter.Success(desc)
	}
	return renderElement(cmd.OutOrStdout(), m, desc)
}

func describeModel(m *model.Model) ModelDescription {
	desc := ModelDescription{
		Elements:     make([]ElementSummary, len(m.Elements)),
		Enumerations: m.Enumerations,
	}
	for i, e := range m.Elements {
		desc.Elements[i] = ElementSummary{
			ID:         e.ID,
			Name:       e.Name,
			BaseType:   e.BaseType,
			Attributes: len(e.Attributes),
			Relations:  len(e.Relations),
		}
	}
	return desc
}

func describeElement(m *model.Model, elem *model.Element) ElementDescription {
	desc := ElementDescription{Element: elem, Wildcard: engine.WildcardColumns(elem)}
	seen := make(map[string]bool)
	for _, a := range elem.Attributes {
		if a.Enumeration == "" || seen[a.Enumeration] {
			continue
		}
		seen[a.Enumeration] = true
		if enum := m.Enumeration(a.Enumeration); enum != nil {
			desc.Enumerations = append(desc.Enumerations, enum)
		}
	}
	return desc
}

func renderModel(w io.Writer, desc ModelDescription) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tELEMENT\tBASE TYPE\tATTRIBUTES\tRELATIONS")
	for _, e := range desc.Elements {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", e.ID, e.Name, e.BaseType, e.Attributes, e.Relations)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, enum := range desc.Enumerations {
		fmt.Fprintf(w, "\nenumeration %s: %s\n", enum.Name, enumItems(enum))
	}
	return nil
}

func renderElement(w io.Writer, m *model.Model, desc ElementDescription) error {
	elem := desc.Element
	fmt.Fprintf(w, "%s (id %d, %s)\n\n", elem.Name, elem.ID, elem.BaseType)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTRIBUTE\tBASE NAME\tTYPE\tUNIT\tENUMERATION")
	for _, a := range elem.Attributes {
		unit := ""
		if a.Unit != 0 {
			unit = strconv.FormatInt(a.Unit, 10)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Name, a.BaseName, a.DataType, unit, a.Enumeration)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(elem.Relations) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RELATION\tTARGET\tRANGE\tINVERSE\tINVERSE RANGE")
		for _, r := range elem.Relations {
			target := strconv.FormatInt(r.Target, 10)
			if t := m.ElementByID(r.Target); t != nil {
				target = t.Name
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, target, formatRange(r.Range), r.InverseName, formatRange(r.InverseRange))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, enum := range desc.Enumerations {
		fmt.Fprintf(w, "\nenumeration %s: %s\n", enum.Name, enumItems(enum))
	}
	fmt.Fprintf(w, "\nwildcard: %s\n", strings.Join(desc.Wildcard, ", "))
	return nil
}

func formatRange(r model.Range) string {
	if r.IsMany() {
		return strconv.Itoa(r.Min) + "..*"
	}
	return strconv.Itoa(r.Min) + ".." + strconv.Itoa(r.Max)
}

func enumItems(enum *model.Enumeration) string {
	items := make([]string, len(enum.Items))
	for i, it := range enum.Items {
		items[i] = fmt.Sprintf("%s=%d", it.Name, it.Code)
	}
	return strings.Join(items, ", ")
}
