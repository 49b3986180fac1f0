package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimRight(bp, "/")
}

// parsePID reads the :pid route parameter. On failure it writes a 400
// response and returns false.
func parsePID(c *gin.Context) (int32, bool) {
	raw := c.Param("pid")
	pid, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || pid <= 0 {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid pid: " + raw})
		return 0, false
	}
	return int32(pid), true
}

// isSafeName validates service names to avoid path traversal when used in
// filenames. Allowed characters: A-Z a-z 0-9 . _ - and no "..".
func isSafeName(s string) bool {
	if s == "" {
		return false
	}
	if strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			continue
		}
		return false
	}
	if strings.ContainsAny(s, "/\\") {
		return false
	}
	return true
}

// isSafeAbsPath ensures the provided path is absolute and does not contain
// traversal segments.
func isSafeAbsPath(p string) bool {
	if p == "" {
		return true
	}
	if !filepath.IsAbs(p) {
		return false
	}
	for _, part := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return false
		}
	}
	return true
}

func writeJSON(c *gin.Context, code int, v any) {
	c.Status(code)
	c.Header("Content-Type", "application/json")
	_ = json.NewEncoder(c.Writer).Encode(v)
}
