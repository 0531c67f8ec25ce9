package output

import (
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// Op marks a line of a diff
type Op byte

const (
	OpEqual  Op = ' '
	OpInsert Op = '+'
	OpDelete Op = '-'
)

// Line is one line of a line-oriented diff
type Line struct {
	Op   Op
	Text string
}

// DiffLines compares two documents line by line
func DiffLines(from, to string) []Line {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []Line
	for _, d := range diffs {
		op := OpEqual
		switch d.Type {
		case diffpatch.DiffInsert:
			op = OpInsert
		case diffpatch.DiffDelete:
			op = OpDelete
		}
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text == "" {
				continue
			}
			out = append(out, Line{Op: op, Text: strings.TrimSuffix(text, "\n")})
		}
	}
	return out
}

// Changed reports whether any line differs
func Changed(lines []Line) bool {
	for _, l := range lines {
		if l.Op != OpEqual {
			return true
		}
	}
	return false
}
