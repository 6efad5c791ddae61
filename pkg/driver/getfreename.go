package driver

import (
	"context"
	"regexp"
	"strconv"

	"github.com/jdss/jdssctl/pkg/jdssutil"
	"github.com/jdss/jdssctl/pkg/nameid"
)

// FindFreeName returns the lowest-numbered unused "<prefix><n>" external
// volume id, scanning the pool's existing volumes for names already
// claiming an index under prefix.
func (d *Driver) FindFreeName(ctx context.Context, prefix string) (string, error) {
	volumes, err := d.api.ListVolumes(ctx)
	if err != nil {
		return "", err
	}

	re := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(\d+)$`)
	var used []int
	for _, v := range volumes {
		if !nameid.IsVolume(v.Name) {
			continue
		}
		id := nameid.IDName(v.Name)
		m := re.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		used = append(used, n)
	}

	free := jdssutil.LowestFreeInt(used)
	return prefix + strconv.Itoa(free), nil
}
