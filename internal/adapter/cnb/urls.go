package cnb

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"cnb-rates/internal/entity"
)

const (
	DefaultHost = "www.cnb.cz"

	dailyPath   = "/cs/financni_trhy/devizovy_trh/kurzy_devizoveho_trhu/vybrane.txt"
	averagePath = "/cs/financni_trhy/devizovy_trh/kurzy_devizoveho_trhu/prumerne_mena.txt"
)

// Table indexes inside the averages document.
const (
	MonthlyAverageTable           = 0
	CumulativeMonthlyAverageTable = 1
	QuarterlyAverageTable         = 2
)

// DailyURL is the selected-rates table of currency for the inclusive range [from, to].
func DailyURL(host, currency string, from, to time.Time) string {
	return fmt.Sprintf("http://%s%s?mena=%s&od=%s&do=%s",
		hostOrDefault(host), dailyPath, url.QueryEscape(currency),
		from.Format(entity.DateFormat), to.Format(entity.DateFormat))
}

func AverageURL(host, currency string) string {
	return fmt.Sprintf("http://%s%s?mena=%s", hostOrDefault(host), averagePath, url.QueryEscape(strings.ToUpper(currency)))
}

func hostOrDefault(host string) string {
	if host == "" {
		return DefaultHost
	}
	return host
}
