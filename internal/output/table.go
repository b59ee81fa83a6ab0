package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/vijay-prabhu/mailcode/internal/auth"
	"github.com/vijay-prabhu/mailcode/internal/email"
)

// Table writes data as a formatted table to stdout
func Table(data interface{}) error {
	return TableTo(os.Stdout, data)
}

// TableTo writes data as a formatted table to the given writer
func TableTo(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case *email.ResolvedResult:
		return resultTable(w, v)
	case auth.Status:
		return statusTable(w, v)
	case *email.Profile:
		return profileTable(w, v)
	default:
		return fmt.Errorf("unsupported data type for table output: %T", data)
	}
}

func keyValueTable(w io.Writer, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func resultTable(w io.Writer, r *email.ResolvedResult) error {
	rows := [][]string{
		{"Kind", r.Kind},
		{"Subject", r.Headers.Subject},
		{"From", r.Headers.From},
		{"To", r.Headers.To},
		{"Received", formatMillis(r.InternalDate)},
		{"Message", r.ID},
	}
	if r.URL != nil {
		rows = append(rows, []string{"Link", *r.URL})
	}
	if r.Snippet != "" {
		rows = append(rows, []string{"Snippet", truncate(r.Snippet, 80)})
	}

	if err := keyValueTable(w, rows); err != nil {
		return err
	}

	// Plain text is short enough to read in a terminal; HTML is not
	if r.Text != nil && *r.Text != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, *r.Text)
	} else if r.HTML != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "HTML body available, use --output json to see it.")
	}

	return nil
}

func statusTable(w io.Writer, s auth.Status) error {
	authorized := "no"
	if s.Authorized {
		authorized = "yes"
	}

	rows := [][]string{{"Authorized", authorized}}
	if s.Email != "" {
		rows = append(rows, []string{"Account", s.Email})
	}
	if s.Authorized {
		expiry := "refresh pending"
		if !s.Expiry.IsZero() && s.Expiry.Unix() > 0 {
			expiry = s.Expiry.Local().Format(time.RFC1123)
		}
		rows = append(rows, []string{"Access token expiry", expiry})
	}

	return keyValueTable(w, rows)
}

func profileTable(w io.Writer, p *email.Profile) error {
	return keyValueTable(w, [][]string{
		{"Email", p.EmailAddress},
		{"Messages", fmt.Sprintf("%d", p.MessagesTotal)},
	})
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "unknown"
	}
	return time.UnixMilli(ms).Local().Format("Jan 02 15:04:05")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
