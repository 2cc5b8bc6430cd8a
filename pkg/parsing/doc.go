// Package parsing turns a tree-shaped description (XML or YAML) into a Node
// tree whose attribute and text reads go through a shared variable set.
//
// Variables are resolved at read time, not at decode time, so a section that
// installs new variables affects every node read after it:
//
//	doc, err := parsing.Decode(r, parsing.FormatAuto, vars)
//	root, err := doc.Root("configuration")
//	doc.SetVariables(loaded)             // later reads see ${...} from loaded
//	url := root.Child("dataSource").StringAttr("url")
package parsing
