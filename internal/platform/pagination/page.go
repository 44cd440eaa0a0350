// Package pagination normalizes list paging parameters.
package pagination

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// PageSizeConfig configures page size normalization.
type PageSizeConfig struct {
	Default int
	Max     int
}

// OrderByConfig configures order_by validation.
type OrderByConfig struct {
	Default string
	Allowed []string
}

// ClampPageSize applies defaults and limits for page sizes.
func ClampPageSize(value int, cfg PageSizeConfig) int {
	pageSize := value
	if pageSize <= 0 {
		pageSize = cfg.Default
	}
	if cfg.Max > 0 && pageSize > cfg.Max {
		pageSize = cfg.Max
	}
	return max(pageSize, 1)
}

// NormalizeOrderBy validates order_by and applies the default.
func NormalizeOrderBy(orderBy string, cfg OrderByConfig) (string, error) {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		return cfg.Default, nil
	}
	if slices.Contains(cfg.Allowed, orderBy) {
		return orderBy, nil
	}
	return "", fmt.Errorf("invalid order_by: %s", orderBy)
}

// OffsetToken encodes a row offset as an opaque page token. Zero is the
// empty token.
func OffsetToken(offset int) string {
	if offset <= 0 {
		return ""
	}
	return strconv.Itoa(offset)
}

// ParseOffsetToken decodes a token produced by OffsetToken.
func ParseOffsetToken(token string) (int, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("invalid page token: %q", token)
	}
	return offset, nil
}
