// Package console is the human-facing terminal surface: one styled prompt
// per turn in, the support reply and tool-use notices out.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Underline(true)
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

type Console struct {
	in  *bufio.Scanner
	out io.Writer
}

func New() *Console {
	return &Console{
		in:  bufio.NewScanner(os.Stdin),
		out: os.Stdout,
	}
}

// NewWithStreams is the test seam.
func NewWithStreams(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:  bufio.NewScanner(in),
		out: out,
	}
}

func (c *Console) Banner(title string) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, bannerStyle.Render(title))
	fmt.Fprintln(c.out, bannerStyle.Render(strings.Repeat("=", len(title))))
}

// ReadLine blocks for one line of user input. The second return is false
// once the input stream ends.
func (c *Console) ReadLine() (string, bool) {
	fmt.Fprint(c.out, "\n"+userStyle.Render("User:")+" ")
	if !c.in.Scan() {
		fmt.Fprintln(c.out)
		return "", false
	}
	return c.in.Text(), true
}

func (c *Console) ShowReply(text string) {
	fmt.Fprintf(c.out, "\n%s %s\n", botStyle.Render("TechNova Support:"), text)
}

func (c *Console) ShowToolUse(name string) {
	fmt.Fprintln(c.out, noticeStyle.Render(fmt.Sprintf("Assistant wants to use the %s tool", name)))
}
