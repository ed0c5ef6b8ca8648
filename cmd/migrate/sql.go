package main

import (
	"bufio"
	"strings"
)

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// upStatements returns the statements between the Up and Down markers. A file
// without markers is treated as all Up.
func upStatements(content string) []string {
	if i := strings.Index(content, downMarker); i >= 0 {
		content = content[:i]
	}
	content = strings.Replace(content, upMarker, "", 1)
	return splitSQL(content)
}

// splitSQL breaks on lines ending a statement with ';'. Comment lines are
// dropped. Function bodies with embedded semicolons are not supported.
func splitSQL(sqlText string) []string {
	var statements []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(sqlText))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.HasSuffix(trimmed, ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}
