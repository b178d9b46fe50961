package utils

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

var dormSourceDir string

func init() {
	_, file, _, _ := runtime.Caller(0)
	// compatible solution to get dorm source directory with various operating systems
	dormSourceDir = sourceDir(file)
}

func sourceDir(file string) string {
	dir := filepath.Dir(file)
	dir = filepath.Dir(dir)

	s := filepath.Dir(dir)
	if filepath.Base(s) != "dorm.io" {
		s = dir
	}
	return filepath.ToSlash(s) + "/"
}

// FileWithLineNum return the file name and line number of the current file
func FileWithLineNum() string {
	// the second caller usually from internal, so set i start from 2
	for i := 2; i < 15; i++ {
		_, file, line, ok := runtime.Caller(i)
		if ok && (!strings.HasPrefix(file, dormSourceDir) || strings.HasSuffix(file, "_test.go")) {
			return file + ":" + strconv.FormatInt(int64(line), 10)
		}
	}

	return ""
}

// CallerFrame returns the first caller frame outside the dorm source tree.
func CallerFrame() (frame runtime.Frame) {
	pcs := [15]uintptr{}
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for i := 0; i < n; i++ {
		frame, _ = frames.Next()
		if !strings.HasPrefix(frame.File, dormSourceDir) || strings.HasSuffix(frame.File, "_test.go") {
			break
		}
	}
	return frame
}
