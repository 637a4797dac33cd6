package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"analysis_report_go/tables"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var htmlTemplate = template.Must(
	template.New("report.html.tmpl").
		Funcs(template.FuncMap{
			"cell":    FormatValue,
			"plotsOf": func(s *SectionContext, i int) []PlotContext { return s.PlotsFor(i) },
		}).
		ParseFS(templateFS, "templates/report.html.tmpl"),
)

// FormatValue renders one table value for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return tables.ND
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// WriteHTML renders the report as a standalone HTML document.
func WriteHTML(w io.Writer, c *Context) error {
	if err := htmlTemplate.Execute(w, c); err != nil {
		return errors.Wrap(err, "render html")
	}
	return nil
}

// WriteContextJSON dumps the full render context, indented, for debugging.
func WriteContextJSON(w io.Writer, c *Context) error {
	b, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encode context")
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return errors.Wrap(err, "write context")
}
