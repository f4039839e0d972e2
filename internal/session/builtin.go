package session

import (
	"cexplorer/internal/api"
	"cexplorer/internal/aspect"
	"cexplorer/internal/settings"
)

const builtinSource = `#include <cstdio>

int main() {
    std::printf("Hello, World!\n");
    return 0;
}
`

// BuiltinDocument is the document a session starts from when nothing else
// is configured: one C++ source compiled by one compiler.
func BuiltinDocument() aspect.Store {
	return aspect.Store{
		"CompilerExplorerUrl": api.DefaultBaseURL,
		"Sources": []any{
			aspect.Store{
				"LanguageId": settings.DefaultLanguage,
				"Source":     builtinSource,
				"Compilers": []any{
					aspect.Store{
						"Id":                  api.DefaultCompilerID,
						"ExecuteCode":         true,
						"IntelAsmSyntax":      true,
						"DemangleIdentifiers": true,
					},
				},
			},
		},
	}
}
