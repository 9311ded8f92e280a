package feeds

import (
	"math"
	"strings"
)

// Contract enforcement modes.
const (
	ContractOff    = "off"
	ContractWarn   = "warn"
	ContractStrict = "strict"
)

// NormalizeContractMode maps unknown modes to warn.
func NormalizeContractMode(mode string) string {
	switch m := strings.ToLower(strings.TrimSpace(mode)); m {
	case ContractOff, ContractWarn, ContractStrict:
		return m
	default:
		return ContractWarn
	}
}

// NormalizeDomain resolves the hyphenated injury alias.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if d == "injury-news" {
		return FeedInjuryNews
	}
	return d
}

// ValidateEnvelope checks the envelope shape of a raw payload.
func ValidateEnvelope(payload any) []string {
	m, ok := payload.(map[string]any)
	if !ok {
		return []string{"payload_not_object"}
	}
	var errs []string
	if _, ok := m["data"].(map[string]any); !ok {
		errs = append(errs, "data_missing_or_not_object")
	}
	ts, _ := m["source_timestamp"].(string)
	if _, ok := ParseTimestamp(ts); !ok {
		errs = append(errs, "source_timestamp_missing_or_invalid_iso")
	}
	if !isStringList(m["quality_flags"]) {
		errs = append(errs, "quality_flags_missing_or_invalid")
	}
	if !isStringList(m["warnings"]) {
		errs = append(errs, "warnings_missing_or_invalid")
	}
	return errs
}

// ValidateCanonical checks a payload against the envelope shape and the
// domain-specific data contract. Map entries are checked in key order.
func ValidateCanonical(domain string, payload any) []string {
	errs := ValidateEnvelope(payload)
	m, ok := payload.(map[string]any)
	if !ok {
		return errs
	}
	data := AsMap(m["data"])

	switch d := NormalizeDomain(domain); d {
	case FeedWeather:
		errs = append(errs, validateWeather(data)...)
	case FeedMarket:
		errs = append(errs, validateMarket(data)...)
	case FeedOdds:
		errs = append(errs, validateOdds(data)...)
	case FeedInjuryNews:
		errs = append(errs, validateInjuryNews(data)...)
	case FeedNextGenStats:
		errs = append(errs, validateNextGenStats(data)...)
	default:
		errs = append(errs, "unsupported_domain:"+d)
	}
	return errs
}

func validateWeather(data map[string]any) []string {
	teams, ok := data["team_weather"].(map[string]any)
	if !ok {
		return []string{"weather.team_weather_missing_or_invalid"}
	}
	var errs []string
	for _, id := range SortedKeys(teams) {
		prefix := "weather.team_weather." + id
		entry, ok := teams[id].(map[string]any)
		if !ok {
			errs = append(errs, prefix+"_not_object")
			continue
		}
		if _, isBool := entry["is_dome"].(bool); !isBool {
			errs = append(errs, prefix+".is_dome_invalid")
		}
		if !IsNumber(entry["wind_mph"]) {
			errs = append(errs, prefix+".wind_mph_invalid")
		}
		if !isShare(entry["precip_prob"]) {
			errs = append(errs, prefix+".precip_prob_invalid")
		}
	}
	return errs
}

func validateMarket(data map[string]any) []string {
	var errs []string
	for _, key := range []string{"projections", "usage_trend", "sentiment", "future_schedule_strength"} {
		if _, ok := data[key].(map[string]any); !ok {
			errs = append(errs, "market."+key+"_missing_or_invalid")
		}
	}
	errs = append(errs, validateShareMap(data, "market", "ownership_by_player")...)
	return errs
}

func validateOdds(data map[string]any) []string {
	var errs []string
	for _, key := range []string{"defense_vs_position", "spread_by_team", "implied_total_by_team", "schedule_strength_by_team"} {
		if _, ok := data[key].(map[string]any); !ok {
			errs = append(errs, "odds."+key+"_missing_or_invalid")
		}
	}

	if raw := data["player_props_by_player"]; raw != nil {
		props, ok := raw.(map[string]any)
		if !ok {
			errs = append(errs, "odds.player_props_by_player_missing_or_invalid")
		} else {
			for _, pid := range SortedKeys(props) {
				prefix := "odds.player_props_by_player." + pid
				entry, ok := props[pid].(map[string]any)
				if !ok {
					errs = append(errs, prefix+"_not_object")
					continue
				}
				if !IsNumber(entry["line_open"]) {
					errs = append(errs, prefix+".line_open_invalid")
				}
				if !IsNumber(entry["line_current"]) {
					errs = append(errs, prefix+".line_current_invalid")
				}
				if !isShare(entry["sharp_over_pct"]) {
					errs = append(errs, prefix+".sharp_over_pct_invalid")
				}
			}
		}
	}

	errs = append(errs, validateShareMap(data, "odds", "win_probability_by_team")...)

	if raw := data["live_game_state_by_team"]; raw != nil {
		states, ok := raw.(map[string]any)
		if !ok {
			errs = append(errs, "odds.live_game_state_by_team_missing_or_invalid")
		} else {
			for _, tid := range SortedKeys(states) {
				prefix := "odds.live_game_state_by_team." + tid
				entry, ok := states[tid].(map[string]any)
				if !ok {
					errs = append(errs, prefix+"_not_object")
					continue
				}
				q, isInt := asInteger(entry["quarter"])
				switch {
				case !isInt:
					errs = append(errs, prefix+".quarter_invalid")
				case q < 1 || q > 5:
					errs = append(errs, prefix+".quarter_out_of_range")
				}
				if !IsNumber(entry["time_remaining_sec"]) {
					errs = append(errs, prefix+".time_remaining_sec_invalid")
				}
				if !IsNumber(entry["score_differential"]) {
					errs = append(errs, prefix+".score_differential_invalid")
				}
			}
		}
	}

	for _, key := range []string{"opening_spread_by_team", "closing_spread_by_team"} {
		raw := data[key]
		if raw == nil {
			continue
		}
		spreads, ok := raw.(map[string]any)
		if !ok {
			errs = append(errs, "odds."+key+"_missing_or_invalid")
			continue
		}
		for _, tid := range SortedKeys(spreads) {
			if !IsNumber(spreads[tid]) {
				errs = append(errs, "odds."+key+"."+tid+"_invalid")
			}
		}
	}
	return errs
}

func validateInjuryNews(data map[string]any) []string {
	var errs []string
	if _, ok := data["injury_status"].(map[string]any); !ok {
		errs = append(errs, "injury_news.injury_status_missing_or_invalid")
	}
	if _, ok := data["team_injuries_by_position"].(map[string]any); !ok {
		errs = append(errs, "injury_news.team_injuries_by_position_missing_or_invalid")
	}
	errs = append(errs, validateShareMap(data, "injury_news", "backup_projection_ratio_by_player")...)
	return errs
}

var nextGenNumericFields = []string{
	"usage_over_expected",
	"route_participation",
	"avg_separation",
	"explosive_play_rate",
	"volatility_index",
	"red_zone_touch_trend",
	"snap_share_trend",
}

var nextGenShareFields = []string{"red_zone_touch_share", "snap_share"}

func validateNextGenStats(data map[string]any) []string {
	metrics, ok := data["player_metrics"].(map[string]any)
	if !ok {
		return []string{"nextgenstats.player_metrics_missing_or_invalid"}
	}
	var errs []string
	for _, pid := range SortedKeys(metrics) {
		prefix := "nextgenstats.player_metrics." + pid
		entry, ok := metrics[pid].(map[string]any)
		if !ok {
			errs = append(errs, prefix+"_not_object")
			continue
		}
		for _, field := range nextGenNumericFields {
			if v, present := entry[field]; present && !IsNumber(v) {
				errs = append(errs, prefix+"."+field+"_invalid")
			}
		}
		for _, field := range nextGenShareFields {
			if v, present := entry[field]; present && !isShare(v) {
				errs = append(errs, prefix+"."+field+"_invalid")
			}
		}
	}
	return errs
}

// validateShareMap checks an optional id -> [0,1] map.
func validateShareMap(data map[string]any, domain, key string) []string {
	raw := data[key]
	if raw == nil {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return []string{domain + "." + key + "_missing_or_invalid"}
	}
	var errs []string
	for _, id := range SortedKeys(m) {
		if !isShare(m[id]) {
			errs = append(errs, domain+"."+key+"."+id+"_invalid")
		}
	}
	return errs
}

func isShare(v any) bool {
	if v == nil {
		return false
	}
	f, ok := ToFloat(v)
	return ok && f >= 0 && f <= 1
}

func asInteger(v any) (int, bool) {
	switch v.(type) {
	case bool, string, nil:
		return 0, false
	}
	f, ok := ToFloat(v)
	if !ok || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func isStringList(v any) bool {
	switch t := v.(type) {
	case []string:
		return true
	case []any:
		for _, item := range t {
			if _, ok := item.(string); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}
