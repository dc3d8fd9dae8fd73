//go:build cgo

package compress

import (
	"context"
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

const (
	commentNodeType  = "comment"
	bodyField        = "body"
	definitionField  = "definition"
	declarationField = "declaration"
	valueField       = "value"
)

type chunkExtractor func(node *sitter.Node, source []byte, chunks *[]string)

type grammar struct {
	language *sitter.Language
	extract  chunkExtractor
}

var (
	goGrammar         = grammar{language: golang.GetLanguage(), extract: extractGoChunks}
	pythonGrammar     = grammar{language: python.GetLanguage(), extract: extractPythonChunks}
	javaScriptGrammar = grammar{language: javascript.GetLanguage(), extract: extractJavaScriptChunks}

	grammarsByExtension = map[string]grammar{
		".go":  goGrammar,
		".py":  pythonGrammar,
		".js":  javaScriptGrammar,
		".jsx": javaScriptGrammar,
		".mjs": javaScriptGrammar,
		".cjs": javaScriptGrammar,
	}
)

func supportsPath(filePath string) bool {
	_, found := grammarsByExtension[strings.ToLower(path.Ext(filePath))]
	return found
}

func compressSource(ctx context.Context, filePath string, content string) (string, error) {
	selectedGrammar := grammarsByExtension[strings.ToLower(path.Ext(filePath))]
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(selectedGrammar.language)

	source := []byte(content)
	tree, parseError := parser.ParseCtx(ctx, nil, source)
	if parseError != nil {
		return "", fmt.Errorf(errorParseFormat, filePath, parseError)
	}
	defer tree.Close()

	var chunks []string
	root := tree.RootNode()
	for childIndex := 0; childIndex < int(root.NamedChildCount()); childIndex++ {
		selectedGrammar.extract(root.NamedChild(childIndex), source, &chunks)
	}
	if len(chunks) == 0 {
		return content, nil
	}
	return strings.Join(chunks, ChunkSeparator), nil
}

// signature returns the text of outer up to the body of definition.
func signature(outer *sitter.Node, definition *sitter.Node, source []byte) string {
	body := definition.ChildByFieldName(bodyField)
	if body == nil {
		return strings.TrimSpace(outer.Content(source))
	}
	return strings.TrimSpace(string(source[outer.StartByte():body.StartByte()]))
}

func appendChunk(chunks *[]string, chunk string) {
	if chunk != "" {
		*chunks = append(*chunks, chunk)
	}
}

func extractNamedChildren(node *sitter.Node, source []byte, chunks *[]string, extract chunkExtractor) {
	if node == nil {
		return
	}
	for childIndex := 0; childIndex < int(node.NamedChildCount()); childIndex++ {
		extract(node.NamedChild(childIndex), source, chunks)
	}
}

func extractGoChunks(node *sitter.Node, source []byte, chunks *[]string) {
	switch node.Type() {
	case "function_declaration", "method_declaration":
		appendChunk(chunks, signature(node, node, source))
	case commentNodeType, "package_clause", "import_declaration", "type_declaration", "const_declaration", "var_declaration":
		appendChunk(chunks, strings.TrimSpace(node.Content(source)))
	}
}

func extractPythonChunks(node *sitter.Node, source []byte, chunks *[]string) {
	switch node.Type() {
	case commentNodeType, "import_statement", "import_from_statement", "future_import_statement":
		appendChunk(chunks, strings.TrimSpace(node.Content(source)))
	case "function_definition":
		appendChunk(chunks, signature(node, node, source))
	case "class_definition":
		appendChunk(chunks, signature(node, node, source))
		extractNamedChildren(node.ChildByFieldName(bodyField), source, chunks, extractPythonChunks)
	case "decorated_definition":
		definition := node.ChildByFieldName(definitionField)
		if definition == nil {
			return
		}
		appendChunk(chunks, signature(node, definition, source))
		if definition.Type() == "class_definition" {
			extractNamedChildren(definition.ChildByFieldName(bodyField), source, chunks, extractPythonChunks)
		}
	}
}

func extractJavaScriptChunks(node *sitter.Node, source []byte, chunks *[]string) {
	switch node.Type() {
	case commentNodeType, "import_statement":
		appendChunk(chunks, strings.TrimSpace(node.Content(source)))
	case "function_declaration", "generator_function_declaration", "method_definition":
		appendChunk(chunks, signature(node, node, source))
	case "class_declaration":
		appendChunk(chunks, signature(node, node, source))
		extractNamedChildren(node.ChildByFieldName(bodyField), source, chunks, extractJavaScriptChunks)
	case "export_statement":
		declaration := node.ChildByFieldName(declarationField)
		if declaration == nil {
			appendChunk(chunks, strings.TrimSpace(node.Content(source)))
			return
		}
		extractJavaScriptDeclaration(node, declaration, source, chunks)
	case "lexical_declaration", "variable_declaration":
		extractJavaScriptDeclaration(node, node, source, chunks)
	}
}

// extractJavaScriptDeclaration emits declaration as seen from outer, which is
// either the declaration itself or its enclosing export statement.
func extractJavaScriptDeclaration(outer *sitter.Node, declaration *sitter.Node, source []byte, chunks *[]string) {
	switch declaration.Type() {
	case "function_declaration", "generator_function_declaration":
		appendChunk(chunks, signature(outer, declaration, source))
	case "class_declaration":
		appendChunk(chunks, signature(outer, declaration, source))
		extractNamedChildren(declaration.ChildByFieldName(bodyField), source, chunks, extractJavaScriptChunks)
	case "lexical_declaration", "variable_declaration":
		for childIndex := 0; childIndex < int(declaration.NamedChildCount()); childIndex++ {
			declarator := declaration.NamedChild(childIndex)
			value := declarator.ChildByFieldName(valueField)
			if value != nil && isJavaScriptFunction(value.Type()) {
				appendChunk(chunks, signature(outer, value, source))
				return
			}
		}
		appendChunk(chunks, strings.TrimSpace(outer.Content(source)))
	default:
		appendChunk(chunks, strings.TrimSpace(outer.Content(source)))
	}
}

func isJavaScriptFunction(nodeType string) bool {
	switch nodeType {
	case "arrow_function", "function", "function_expression", "generator_function":
		return true
	}
	return false
}
