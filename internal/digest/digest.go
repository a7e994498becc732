package digest

import (
	"context"
	"fmt"
	"log"
	"snapfix/internal/storage/sqlite"
	"strings"
)

type LoadSource interface {
	OpenReportLoad(ctx context.Context) ([]sqlite.DepartmentLoad, error)
}

type Poster interface {
	PostText(ctx context.Context, channelID, text string) error
}

// FormatDigest renders open-report counts grouped by department. Rows arrive
// ordered by department, which keeps the output stable.
func FormatDigest(load []sqlite.DepartmentLoad) string {
	total := 0
	for _, l := range load {
		total += l.Count
	}
	if total == 0 {
		return "📊 No open SnapFix reports."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Open SnapFix reports: %d", total)

	for i := 0; i < len(load); {
		dept := load[i].Department
		deptTotal := 0
		var parts []string
		for ; i < len(load) && load[i].Department == dept; i++ {
			deptTotal += load[i].Count
			status := load[i].DeptStatus
			if status == "" {
				status = "Unassigned"
			}
			parts = append(parts, fmt.Sprintf("%s %d", status, load[i].Count))
		}
		fmt.Fprintf(&b, "\n• %s: %d (%s)", dept, deptTotal, strings.Join(parts, ", "))
	}
	return b.String()
}

// PostDigest builds the digest and posts it. With skipEmpty an empty backlog
// posts nothing.
func PostDigest(ctx context.Context, src LoadSource, poster Poster, channelID string, skipEmpty bool) (string, error) {
	load, err := src.OpenReportLoad(ctx)
	if err != nil {
		return "", fmt.Errorf("load open reports: %w", err)
	}
	msg := FormatDigest(load)
	if skipEmpty && len(load) == 0 {
		log.Printf("digest skipped: no open reports")
		return msg, nil
	}
	if err := poster.PostText(ctx, channelID, msg); err != nil {
		return msg, err
	}
	return msg, nil
}
