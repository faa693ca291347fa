package prompt

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"join":   strings.Join,
	"states": states,
}).ParseFS(templateFS, "templates/*.tmpl"))

// Builder renders prompts for one View.
type Builder struct {
	view View
}

// New returns a Builder over v.
func New(v View) *Builder {
	return &Builder{view: v}
}

// Conversation renders the dialogue generation prompt. history is the full
// exchange so far, one line per entry.
func (b *Builder) Conversation(history []string) (string, error) {
	return render("conversation.tmpl", struct {
		View    View
		History []string
	}{b.view, history})
}

type row struct {
	Name  string
	Value int
	Range string
}

// Analysis renders the prompt asking for state deltas after the user
// answered dialogue with response.
func (b *Builder) Analysis(dialogue []string, response string) (string, error) {
	data := struct {
		View               View
		Characters         []characterRows
		User               []row
		Dialogue           []string
		Response           string
		CharacterVariables []string
		UserVariables      []string
	}{
		View:     b.view,
		Dialogue: dialogue,
		Response: response,
	}

	for _, c := range b.view.Characters {
		cr := characterRows{Name: c.Name, Background: c.Background}
		for _, v := range c.Variables {
			cr.Rows = append(cr.Rows, row{Name: v.Name, Value: v.Value, Range: fmt.Sprintf("%d-%d", v.Min, v.Max)})
		}
		data.Characters = append(data.Characters, cr)
	}
	if len(b.view.Characters) > 0 {
		for _, v := range b.view.Characters[0].Variables {
			if v.Analyzable {
				data.CharacterVariables = append(data.CharacterVariables, v.Name)
			}
		}
	}

	for _, v := range b.view.User.Variables {
		data.User = append(data.User, row{Name: v.Name, Value: v.Value, Range: b.userRange(v)})
		if v.Analyzable {
			data.UserVariables = append(data.UserVariables, v.Name)
		}
	}

	return render("analysis.tmpl", data)
}

type characterRows struct {
	Name       string
	Background string
	Rows       []row
}

func (b *Builder) userRange(v Variable) string {
	if v.Name != RoleVariable || len(b.view.Characters) < 2 {
		return fmt.Sprintf("%d-%d", v.Min, v.Max)
	}
	first, second := b.view.Characters[0].Name, b.view.Characters[1].Name
	return fmt.Sprintf("%d-%d, where %d is allied with %s, %d is neutral, %d is allied with %s",
		v.Min, v.Max, v.Min, second, floorHalf(v.Min+v.Max), v.Max, first)
}

func floorHalf(n int) int {
	if n < 0 && n%2 != 0 {
		return n/2 - 1
	}
	return n / 2
}

func states(vars []Variable) string {
	parts := make([]string, 0, len(vars))
	for _, v := range vars {
		if v.State != "" {
			parts = append(parts, v.Name+": "+v.State)
		}
	}
	return strings.Join(parts, "; ")
}

func render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return sb.String(), nil
}
