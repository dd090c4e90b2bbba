package parser

import (
	"strconv"
	"strings"
)

// Dump 以缩进树的形式输出AST，每个节点一行
func Dump(cl *CommandLine) string {
	var out strings.Builder
	dumpCommandLine(&out, cl, 0)
	return out.String()
}

func dumpCommandLine(out *strings.Builder, cl *CommandLine, indent int) {
	for c := cl; c != nil; c = c.Next {
		writeDumpLine(out, indent, "CommandLine")
		for _, a := range c.Assignments {
			writeDumpLine(out, indent+1, "Assignment "+a.Name)
			dumpWord(out, a.Value, indent+2)
		}
		if c.Command != nil {
			writeDumpLine(out, indent+1, "Command")
			dumpWord(out, c.Command, indent+2)
		}
		for _, item := range c.Items {
			switch it := item.(type) {
			case *Word:
				writeDumpLine(out, indent+1, "Argument")
				dumpWord(out, it, indent+2)
			case *Redirection:
				writeDumpLine(out, indent+1, "Redirection "+it.Fd.String()+it.Type.String())
				dumpWord(out, it.Target, indent+2)
			}
		}
		if c.Separator != SepNone {
			writeDumpLine(out, indent+1, "Separator "+c.Separator.String())
		}
	}
}

func dumpWord(out *strings.Builder, w *Word, indent int) {
	if len(w.Segments) == 0 {
		writeDumpLine(out, indent, "Empty")
		return
	}
	for _, seg := range w.Segments {
		switch s := seg.(type) {
		case *Literal:
			writeDumpLine(out, indent, "Literal "+strconv.Quote(s.Value))
		case *EnvVar:
			writeDumpLine(out, indent, "EnvVar "+s.Name)
		case *Substitution:
			writeDumpLine(out, indent, "Substitution")
			dumpCommandLine(out, s.Line, indent+1)
		}
	}
}

func writeDumpLine(out *strings.Builder, indent int, text string) {
	out.WriteString(strings.Repeat("  ", indent))
	out.WriteString(text)
	out.WriteByte('\n')
}
