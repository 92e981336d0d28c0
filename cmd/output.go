package main

import (
	"crypto/sha256"
	"encoding/base64"
	"io"
	"strings"
	"time"

	"github.com/dtroode/console-auth/internal/model"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

func renderTable(w io.Writer, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}

func sessionRows(s model.AuthState[model.SessionToken], authorized bool) [][]string {
	rows := [][]string{{"State", stateLabel(s.Kind())}}

	if s.Kind() == model.StateError {
		return append(rows, []string{"Error", s.Message()})
	}

	token, ok := s.Data()
	if !ok {
		return rows
	}

	pending := "-"
	if token.MfaPending() {
		methods := make([]string, 0, len(token.PendingMfaOptions))
		for _, m := range token.PendingMfaOptions {
			methods = append(methods, string(m))
		}
		pending = color.YellowString(strings.Join(methods, ", "))
	}

	return append(rows,
		[]string{"Token ID", token.ID},
		[]string{"User ID", token.UserID},
		[]string{"Pending MFA", pending},
		[]string{"Authorized", yesNo(authorized)},
		[]string{"Token expires", formatTime(token.TokenExpiresAt)},
		[]string{"Session expires", formatTime(token.SessionExpiresAt)},
	)
}

func userRows(u model.User) [][]string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = "-"
	}
	return [][]string{
		{"User ID", u.ID},
		{"Email", u.PrimaryEmail},
		{"Name", name},
	}
}

func deviceRows(d model.Device) [][]string {
	sum := sha256.Sum256(d.PublicKeyData)
	return [][]string{
		{"Algorithm", string(d.Algorithm)},
		{"Fingerprint", "SHA256:" + base64.RawStdEncoding.EncodeToString(sum[:])},
	}
}

func stateLabel(kind model.AuthStateKind) string {
	switch kind {
	case model.StateAuthenticated:
		return color.GreenString(string(kind))
	case model.StateError:
		return color.RedString(string(kind))
	default:
		return string(kind)
	}
}

func yesNo(v bool) string {
	if v {
		return color.GreenString("yes")
	}
	return color.RedString("no")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}
