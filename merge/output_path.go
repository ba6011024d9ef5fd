package merge

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"docmerge/config"
	"docmerge/state"
)

const outputExt = ".docx"

// buildOutputPath returns constructed output file path/name. Destination
// ending with ".docx" is used as is, otherwise it is a directory and file
// name comes either from default naming scheme or from user-defined
// template. It cleans up path and if requested transliterates it.
func buildOutputPath(ri *renderInfo, dst string, env *state.LocalEnv) string {
	if strings.EqualFold(filepath.Ext(dst), outputExt) {
		return dst
	}

	defaultFile := buildDefaultFileName(ri.template, env)
	if env.Cfg.Document.OutputNameTemplate == "" {
		return filepath.Join(dst, defaultFile)
	}

	expandedName := expandOutputNameTemplate(ri, env)
	if expandedName == "" {
		// fallback to default name if template expansion failed
		return filepath.Join(dst, defaultFile)
	}
	return assemblePathWithSubdirs(dst, expandedName, defaultFile, env)
}

func buildDefaultFileName(src string, env *state.LocalEnv) string {
	name := baseName(src) + "-merged"
	if env.Cfg.Document.FileNameTransliterate {
		name = slug.Make(name)
	}
	return config.CleanFileName(name) + outputExt
}

func expandOutputNameTemplate(ri *renderInfo, env *state.LocalEnv) string {
	expandedName, err := expandTemplate(ri, config.OutputNameTemplateFieldName, env.Cfg.Document.OutputNameTemplate)
	if err != nil {
		env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(filepath.FromSlash(expandedName))
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output path,
// cleaning and transliterating segments as needed
func assemblePathWithSubdirs(outDir, expandedName, defaultFile string, env *state.LocalEnv) string {
	pathSegments := splitAndCleanPath(expandedName)

	if len(pathSegments) == 0 {
		return filepath.Join(outDir, defaultFile)
	}

	fileName := cleanPathSegment(pathSegments[len(pathSegments)-1], env) + outputExt
	dirParts := make([]string, 0, len(pathSegments)+1)
	dirParts = append(dirParts, outDir)

	for _, segment := range pathSegments[:len(pathSegments)-1] {
		dirParts = append(dirParts, cleanPathSegment(segment, env))
	}

	dirParts = append(dirParts, fileName)
	return filepath.Join(dirParts...)
}

func splitAndCleanPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		if tail != "." && tail != ".." {
			segments = slices.Insert(segments, 0, tail)
		}
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
	}

	return segments
}

// cleanPathSegment normalizes segment to NFC, optionally transliterates it
// and drops characters file systems do not accept.
func cleanPathSegment(segment string, env *state.LocalEnv) string {
	segment = norm.NFC.String(segment)
	if env.Cfg.Document.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
