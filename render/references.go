package render

import (
	"sort"
	"text/template"
	"text/template/parse"
)

// References returns the top-level variables a template mentions, sorted.
// Inside range and with blocks the dot is rebound, so only $.name references
// count there.
func References(tmpl *template.Template) []string {
	if tmpl == nil || tmpl.Tree == nil {
		return nil
	}
	refs := make(map[string]struct{})
	walkNode(tmpl.Tree.Root, true, refs)

	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func walkNode(node parse.Node, rootDot bool, refs map[string]struct{}) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			walkNode(child, rootDot, refs)
		}
	case *parse.ActionNode:
		walkPipe(n.Pipe, rootDot, refs)
	case *parse.IfNode:
		walkPipe(n.Pipe, rootDot, refs)
		walkNode(n.List, rootDot, refs)
		walkNode(n.ElseList, rootDot, refs)
	case *parse.RangeNode:
		walkPipe(n.Pipe, rootDot, refs)
		walkNode(n.List, false, refs)
		walkNode(n.ElseList, rootDot, refs)
	case *parse.WithNode:
		walkPipe(n.Pipe, rootDot, refs)
		walkNode(n.List, false, refs)
		walkNode(n.ElseList, rootDot, refs)
	case *parse.TemplateNode:
		walkPipe(n.Pipe, rootDot, refs)
	}
}

func walkPipe(pipe *parse.PipeNode, rootDot bool, refs map[string]struct{}) {
	if pipe == nil {
		return
	}
	for _, cmd := range pipe.Cmds {
		for _, arg := range cmd.Args {
			walkArg(arg, rootDot, refs)
		}
	}
}

func walkArg(arg parse.Node, rootDot bool, refs map[string]struct{}) {
	switch a := arg.(type) {
	case *parse.FieldNode:
		if rootDot && len(a.Ident) > 0 {
			refs[a.Ident[0]] = struct{}{}
		}
	case *parse.VariableNode:
		if len(a.Ident) > 1 && a.Ident[0] == "$" {
			refs[a.Ident[1]] = struct{}{}
		}
	case *parse.ChainNode:
		walkArg(a.Node, rootDot, refs)
	case *parse.PipeNode:
		walkPipe(a, rootDot, refs)
	}
}
