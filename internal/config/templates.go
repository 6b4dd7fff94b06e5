package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# WSE Scanner Configuration

[scanner]
# Minimum turnover (average price x volume) of the last bar
min_turnover = 100000.0
# Minimum close of the last bar
min_price = 2.0
# Required growth of the last bar over the previous one
rise_factor = 1.5
# How growth is measured: "turnover", "volume" or "any"
rise_mode = "turnover"
# Shadow to body ratio for hammers and inverted hammers
hammer_ratio = 2.0
# Bar period: "daily" or "weekly"
granularity = "daily"
# Instruments evaluated in parallel
concurrency = 8
# Also report gap, piercing, dark cloud cover, inside bar and smash patterns
extended_patterns = false
# Skip instruments whose last bar is not from today (or this week)
date_check = true

[quotes]
# Directory holding extracted .mst files
# data_dir = "~/.config/wse-scanner/mstall"
url = "https://info.bossa.pl/pub/metastock/mstock/mstall.zip"
# JSON list of {"ticker": ..., "name": ...}
# instruments_file = "~/.config/wse-scanner/polish-stocks.json"
cache_enabled = true
cache_ttl = "12h"

[retry]
# Whole-scan attempts when no instrument has current data
max_attempts = 9
delay = "30m"
max_delay = "30m"
backoff_factor = 1.0

[notifications]
dry_run = false
# Maximum message length; lowest turnover symbols are dropped to fit
max_length = 160
hashtag = "#GPWTweets"

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""

[export]
# Parquet output directory; empty uses exports/ in the config directory
# dir = ""

[logging]
level = "info"
console = true
file = false
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	return os.WriteFile(path, []byte(configTemplate), 0600)
}
