// Package view renders API data and session state for the terminal.
//
// Every renderer supports three formats: table (human-readable, the
// default), json and yaml. Post bodies are Markdown and are rendered with
// glamour in table format; json and yaml carry the raw source.
package view

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/zhubert/quill/api"
	"github.com/zhubert/quill/config"
	"github.com/zhubert/quill/session"
)

const (
	defaultWrap = 80
	dateLayout  = "2006-01-02"
)

// Options tune the table format.
type Options struct {
	// MarkdownStyle is a glamour style name ("dark", "light", "notty", ...).
	// Empty picks a style from the terminal background.
	MarkdownStyle string

	// Wrap is the Markdown word-wrap width. Zero uses 80.
	Wrap int
}

// Renderer writes one kind of output to w.
type Renderer struct {
	w      io.Writer
	format string
	opts   Options
}

// New returns a renderer for format, which must be one of the config
// output formats. An empty format means table.
func New(w io.Writer, format string, opts Options) (*Renderer, error) {
	switch format {
	case "":
		format = config.OutputTable
	case config.OutputTable, config.OutputJSON, config.OutputYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	if opts.Wrap <= 0 {
		opts.Wrap = defaultWrap
	}
	return &Renderer{w: w, format: format, opts: opts}, nil
}

// Format returns the output format in use.
func (r *Renderer) Format() string {
	return r.format
}

// structured writes v as json or yaml. It reports false in table format.
func (r *Renderer) structured(v any) (bool, error) {
	switch r.format {
	case config.OutputJSON:
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case config.OutputYAML:
		enc := yaml.NewEncoder(r.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func (r *Renderer) table(headers []string, rows [][]string) error {
	t := table.New().
		Border(tableBorder).
		BorderStyle(borderStyle).
		StyleFunc(cellStyle).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(r.w, t.String())
	return err
}

// Posts renders a post listing. Empty listings say so instead of drawing
// an empty table.
func (r *Renderer) Posts(posts []api.Post) error {
	if posts == nil {
		posts = []api.Post{}
	}
	if ok, err := r.structured(posts); ok {
		return err
	}
	if len(posts) == 0 {
		_, err := fmt.Fprintln(r.w, mutedStyle.Render("No posts found."))
		return err
	}

	rows := make([][]string, len(posts))
	for i, p := range posts {
		rows[i] = []string{
			p.ID,
			p.Title,
			authorName(p.Author),
			categoryName(p.Category),
			tagNames(p.Tags),
			readingTime(p.ReadingTime),
			formatDate(p.CreatedAt),
		}
	}
	return r.table([]string{"ID", "TITLE", "AUTHOR", "CATEGORY", "TAGS", "READ", "CREATED"}, rows)
}

// Post renders one post with its Markdown body.
func (r *Renderer) Post(p *api.Post) error {
	if ok, err := r.structured(p); ok {
		return err
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(p.Title))
	b.WriteString("\n")

	meta := []string{}
	if name := authorName(p.Author); name != "" {
		meta = append(meta, "by "+name)
	}
	if d := formatDate(p.CreatedAt); d != "" {
		meta = append(meta, d)
	}
	if rt := readingTime(p.ReadingTime); rt != "" {
		meta = append(meta, rt+" read")
	}
	if p.Status == api.StatusDraft {
		meta = append(meta, draftStyle.Render(string(p.Status)))
	}
	b.WriteString(mutedStyle.Render(strings.Join(meta, " · ")))
	b.WriteString("\n")

	if c := categoryName(p.Category); c != "" {
		b.WriteString(labelStyle.Render("Category: ") + c + "\n")
	}
	if tags := tagNames(p.Tags); tags != "" {
		b.WriteString(labelStyle.Render("Tags: ") + tags + "\n")
	}

	body, err := r.markdown(p.Content)
	if err != nil {
		return err
	}
	b.WriteString(body)

	_, err = fmt.Fprint(r.w, b.String())
	return err
}

// markdown renders src with glamour.
func (r *Renderer) markdown(src string) (string, error) {
	style := glamour.WithAutoStyle()
	if r.opts.MarkdownStyle != "" {
		style = glamour.WithStylePath(r.opts.MarkdownStyle)
	}
	md, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(r.opts.Wrap))
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := md.Render(src)
	if err != nil {
		return "", fmt.Errorf("failed to render post content: %w", err)
	}
	return out, nil
}

// Categories renders categories with their post counts.
func (r *Renderer) Categories(categories []api.Category) error {
	if categories == nil {
		categories = []api.Category{}
	}
	if ok, err := r.structured(categories); ok {
		return err
	}
	if len(categories) == 0 {
		_, err := fmt.Fprintln(r.w, mutedStyle.Render("No categories found."))
		return err
	}

	rows := make([][]string, len(categories))
	for i, c := range categories {
		rows[i] = []string{c.ID, c.Name, strconv.Itoa(c.PostCount)}
	}
	return r.table([]string{"ID", "NAME", "POSTS"}, rows)
}

// Tags renders tags with their post counts.
func (r *Renderer) Tags(tags []api.Tag) error {
	if tags == nil {
		tags = []api.Tag{}
	}
	if ok, err := r.structured(tags); ok {
		return err
	}
	if len(tags) == 0 {
		_, err := fmt.Fprintln(r.w, mutedStyle.Render("No tags found."))
		return err
	}

	rows := make([][]string, len(tags))
	for i, t := range tags {
		rows[i] = []string{t.ID, t.Name, strconv.Itoa(t.PostCount)}
	}
	return r.table([]string{"ID", "NAME", "POSTS"}, rows)
}

// Identity is the structured form of whoami.
type Identity struct {
	LoggedIn bool             `json:"logged_in" yaml:"logged_in"`
	Email    string           `json:"email,omitempty" yaml:"email,omitempty"`
	Name     string           `json:"name,omitempty" yaml:"name,omitempty"`
	Token    *api.TokenClaims `json:"token,omitempty" yaml:"token,omitempty"`
}

// Identity renders who is logged in. claims may be nil.
func (r *Renderer) Identity(st session.State, claims *api.TokenClaims) error {
	id := Identity{LoggedIn: st.LoggedIn, Email: st.Email, Name: st.Name, Token: claims}
	if ok, err := r.structured(id); ok {
		return err
	}
	_, err := fmt.Fprintln(r.w, Greeting(st))
	if err != nil || claims == nil || claims.ExpiresAt.IsZero() {
		return err
	}

	line := "Session expires " + claims.ExpiresAt.Local().Format(time.RFC1123)
	if claims.Expired(time.Now()) {
		line = draftStyle.Render("Session expired " + claims.ExpiresAt.Local().Format(time.RFC1123))
	}
	_, err = fmt.Fprintln(r.w, mutedStyle.Render(line))
	return err
}

// Greeting is the one-line identity shown in the header of the shell.
func Greeting(st session.State) string {
	if !st.LoggedIn {
		return mutedStyle.Render("Not logged in")
	}
	name := st.Name
	if name == "" {
		name = st.Email
	}
	return "Hello, " + nameStyle.Render(name) + mutedStyle.Render(" <"+st.Email+">")
}

// Message prints a confirmation line. Structured formats stay silent so
// their output remains parseable.
func (r *Renderer) Message(format string, args ...any) error {
	if r.format != config.OutputTable {
		return nil
	}
	_, err := fmt.Fprintln(r.w, successStyle.Render(fmt.Sprintf(format, args...)))
	return err
}

// ErrorBanner writes the session's last error as a boxed banner to w.
// Nothing is written when msg is empty.
func ErrorBanner(w io.Writer, msg string) error {
	if msg == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, bannerStyle.Render("Error: "+msg))
	return err
}

func authorName(a *api.Author) string {
	if a == nil {
		return ""
	}
	return a.Name
}

func categoryName(c *api.Category) string {
	if c == nil {
		return ""
	}
	return c.Name
}

func tagNames(tags []api.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

func readingTime(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	return fmt.Sprintf("%d min", minutes)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(dateLayout)
}
