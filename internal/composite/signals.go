package composite

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/feeds"
	"fantasy-alpha-lab/internal/metrics"
)

const feedsUnavailableWarning = "External feeds unavailable; provider degraded to league-only signals"

var usagePositionScale = map[string]float64{
	domain.PositionRB:  1.15,
	domain.PositionWR:  1.10,
	domain.PositionTE:  0.90,
	domain.PositionQB:  0.85,
	domain.PositionK:   0.40,
	domain.PositionDST: 0.40,
}

var injuryStatusPenalty = map[string]float64{
	domain.StatusOut:          -3.0,
	domain.StatusIR:           -3.0,
	domain.StatusDoubtful:     -1.8,
	domain.StatusQuestionable: -0.8,
	domain.StatusProbable:     -0.4,
	domain.StatusSuspension:   -2.5,
}

var winProbabilityPositionWeight = map[string]float64{
	domain.PositionQB:  -1.0,
	domain.PositionWR:  -0.85,
	domain.PositionTE:  -0.60,
	domain.PositionRB:  0.95,
	domain.PositionK:   0.20,
	domain.PositionDST: 0.25,
}

var backupPositionWeight = map[string]float64{
	domain.PositionQB:  1.0,
	domain.PositionRB:  0.4,
	domain.PositionWR:  0.2,
	domain.PositionTE:  0.3,
	domain.PositionK:   0.1,
	domain.PositionDST: 0.15,
}

var lineMovePositionWeight = map[string]float64{
	domain.PositionQB:  0.15,
	domain.PositionRB:  0.20,
	domain.PositionWR:  0.15,
	domain.PositionTE:  0.10,
	domain.PositionK:   0.05,
	domain.PositionDST: 0.12,
}

// signalInputs holds the feed sections used by signal math.
type signalInputs struct {
	marketProjections map[string]any
	usageTrend        map[string]any
	sentiment         map[string]any
	marketSchedule    map[string]any
	ownership         map[string]any

	defenseVsPosition map[string]any
	spread            map[string]any
	impliedTotal      map[string]any
	oddsSchedule      map[string]any
	playerProps       map[string]any
	winProbability    map[string]any
	liveGameState     map[string]any
	openingSpread     map[string]any
	closingSpread     map[string]any

	teamWeather   map[string]any
	injuryStatus  map[string]any
	teamInjuries  map[string]any
	backupRatio   map[string]any
	playerMetrics map[string]any
}

func newSignalInputs(envs map[string]feeds.Envelope) signalInputs {
	section := func(feed, key string) map[string]any {
		return feeds.AsMap(envs[feed].Data[key])
	}
	return signalInputs{
		marketProjections: section(feeds.FeedMarket, "projections"),
		usageTrend:        section(feeds.FeedMarket, "usage_trend"),
		sentiment:         section(feeds.FeedMarket, "sentiment"),
		marketSchedule:    section(feeds.FeedMarket, "future_schedule_strength"),
		ownership:         section(feeds.FeedMarket, "ownership_by_player"),

		defenseVsPosition: section(feeds.FeedOdds, "defense_vs_position"),
		spread:            section(feeds.FeedOdds, "spread_by_team"),
		impliedTotal:      section(feeds.FeedOdds, "implied_total_by_team"),
		oddsSchedule:      section(feeds.FeedOdds, "schedule_strength_by_team"),
		playerProps:       section(feeds.FeedOdds, "player_props_by_player"),
		winProbability:    section(feeds.FeedOdds, "win_probability_by_team"),
		liveGameState:     section(feeds.FeedOdds, "live_game_state_by_team"),
		openingSpread:     section(feeds.FeedOdds, "opening_spread_by_team"),
		closingSpread:     section(feeds.FeedOdds, "closing_spread_by_team"),

		teamWeather:   section(feeds.FeedWeather, "team_weather"),
		injuryStatus:  section(feeds.FeedInjuryNews, "injury_status"),
		teamInjuries:  section(feeds.FeedInjuryNews, "team_injuries_by_position"),
		backupRatio:   section(feeds.FeedInjuryNews, "backup_projection_ratio_by_player"),
		playerMetrics: section(feeds.FeedNextGenStats, "player_metrics"),
	}
}

// leagueContext is the roster-wide state shared by every player's signals.
type leagueContext struct {
	regGames           int
	teamStarters       map[int]map[string]float64
	rosterStatus       map[int]string
	ownership          map[int]float64
	replacementByPos   map[string]float64
	meanOwnershipByPos map[string]float64
	injuredCounts      map[int]map[string]int
}

func (p *Provider) buildWeek(ctx context.Context, league *domain.League, week int) (*weekPayload, error) {
	envs, feedWarnings, err := p.fetchAll(ctx, league, week)
	if err != nil {
		return nil, err
	}
	in := newSignalInputs(envs)

	var teams []*domain.Team
	regGames := 14
	if league != nil {
		teams = league.Teams
		regGames = league.RegSeasonCount()
	}

	lc, injuries := prepareLeague(teams, regGames, in)
	active := p.cfg.ActiveSignals()
	extended := p.cfg.EnableExtendedSignals
	totalCap := p.cfg.Caps[CapTotalAdjustment]

	out := &weekPayload{
		Adjustments: map[int]float64{},
		Injuries:    injuries,
		Matchups:    map[int]float64{},
		Diagnostics: map[int]Diagnostics{},
	}

	evaluated, nonZero := 0, 0
	for _, team := range teams {
		if team == nil {
			continue
		}
		for _, player := range team.Roster {
			if player == nil {
				continue
			}
			evaluated++
			raw, matchupSignal, ngMetrics := p.rawSignals(player, team, week, lc, in)

			clipped := make(map[string]float64, len(active))
			weighted := make(map[string]float64, len(active))
			sum := 0.0
			for _, name := range active {
				clipped[name] = p.cfg.Caps[name].Clamp(raw[name])
				weighted[name] = clipped[name] * p.weights[name]
				sum += weighted[name]
			}
			final := totalCap.Clamp(sum)
			if math.Abs(final) > 1e-9 {
				nonZero++
			}

			multiplier := matchupSignal * (1.0 + 0.01*clipped[SignalScheduleCluster])
			multiplier *= 1.0 + clip(clipped[SignalWeatherVenue]*0.02, -0.03, 0.03)
			multiplier = p.cfg.Caps[CapMatchupMultiplier].Clamp(multiplier)

			out.Adjustments[player.ID] = final
			out.Matchups[player.ID] = multiplier

			name := player.Name
			if name == "" {
				name = fmt.Sprint(player.ID)
			}
			out.Diagnostics[player.ID] = Diagnostics{
				Player:                 name,
				TeamID:                 team.ID,
				Position:               player.NormalizedPosition(),
				NextGenMetrics:         ngMetrics,
				Signals:                clipped,
				WeightedSignals:        weighted,
				WeightedSum:            sum,
				FinalAdjustment:        final,
				MatchupMultiplier:      multiplier,
				InjuryStatus:           lc.rosterStatus[player.ID],
				ExtendedSignalsEnabled: extended,
			}
		}
	}

	flagSet := map[string]struct{}{}
	for _, name := range feeds.AllFeeds {
		for _, flag := range envs[name].QualityFlags {
			flagSet[name+":"+flag] = struct{}{}
		}
	}
	qualityFlags := make([]string, 0, len(flagSet))
	for f := range flagSet {
		qualityFlags = append(qualityFlags, f)
	}
	sort.Strings(qualityFlags)

	warnings := append([]string{}, feedWarnings...)
	if allUnavailable(qualityFlags) {
		warnings = append(warnings, feedsUnavailableWarning)
	}
	out.Warnings = warnings

	capHits := 0
	for _, v := range out.Adjustments {
		if v <= totalCap.Low+1e-9 || v >= totalCap.High-1e-9 {
			capHits++
		}
	}
	out.Summary = Summary{
		PlayersEvaluated:        evaluated,
		PlayersWithNonZeroAlpha: nonZero,
		CapHitsTotalAdjustment:  capHits,
		QualityFlags:            qualityFlags,
		ActiveSignals:           active,
		ExtendedSignalsEnabled:  extended,
	}
	return out, nil
}

func allUnavailable(flags []string) bool {
	if len(flags) == 0 {
		return false
	}
	for _, f := range flags {
		if !strings.Contains(f, feeds.FlagFetchFailed) && !strings.Contains(f, feeds.FlagEndpointNotConfigured) {
			return false
		}
	}
	return true
}

// prepareLeague derives positional replacement levels, starter values,
// statuses, ownership and injured counts across every roster.
func prepareLeague(teams []*domain.Team, regGames int, in signalInputs) (*leagueContext, map[int]string) {
	lc := &leagueContext{
		regGames:           regGames,
		teamStarters:       map[int]map[string]float64{},
		rosterStatus:       map[int]string{},
		ownership:          map[int]float64{},
		replacementByPos:   map[string]float64{},
		meanOwnershipByPos: map[string]float64{},
		injuredCounts:      map[int]map[string]int{},
	}
	injuries := map[int]string{}
	positionValues := map[string][]float64{}
	ownershipByPos := map[string][]float64{}

	for _, team := range teams {
		if team == nil {
			continue
		}
		starters := map[string]float64{}
		for _, player := range team.Roster {
			if player == nil {
				continue
			}
			pos := player.NormalizedPosition()
			baseline := player.WeeklyBaseline(regGames)
			if pos != "" {
				positionValues[pos] = append(positionValues[pos], baseline)
				starters[pos] = math.Max(starters[pos], baseline)
			}

			status := player.NormalizedStatus()
			if ext, ok := feeds.Lookup(in.injuryStatus, player.ID); ok && ext != nil {
				status = domain.NormalizeStatus(fmt.Sprint(ext))
			}
			lc.rosterStatus[player.ID] = status
			if !domain.IsHealthy(status) {
				injuries[player.ID] = status
			}

			own := startedPct(player) / 100.0
			if ext, ok := feeds.Lookup(in.ownership, player.ID); ok && ext != nil {
				own = feeds.FloatOr(ext, 0.5)
			}
			own = clip(own, 0, 1)
			lc.ownership[player.ID] = own
			if pos != "" {
				ownershipByPos[pos] = append(ownershipByPos[pos], own)
			}
		}
		lc.teamStarters[team.ID] = starters
	}

	for pos, values := range positionValues {
		lc.replacementByPos[pos] = metrics.Percentile(values, 35)
	}
	for pos, values := range ownershipByPos {
		lc.meanOwnershipByPos[pos] = stat.Mean(values, nil)
	}

	for _, team := range teams {
		if team == nil {
			continue
		}
		counts := map[string]int{}
		if ext, ok := feeds.Lookup(in.teamInjuries, team.ID); ok {
			for pos, v := range feeds.AsMap(ext) {
				counts[strings.ToUpper(pos)] = max(0, int(feeds.FloatOr(v, 0)))
			}
		}
		for _, player := range team.Roster {
			if player != nil && domain.IsOutLike(lc.rosterStatus[player.ID]) {
				counts[player.NormalizedPosition()]++
			}
		}
		lc.injuredCounts[team.ID] = counts
	}
	return lc, injuries
}

// rawSignals computes every unclipped signal for one player, plus the
// defense-vs-position matchup multiplier and the player's next-gen metrics.
func (p *Provider) rawSignals(player *domain.Player, team *domain.Team, week int, lc *leagueContext, in signalInputs) (map[string]float64, float64, map[string]any) {
	pos := player.NormalizedPosition()
	baseline := player.WeeklyBaseline(lc.regGames)

	var recent []float64
	if week > 0 {
		recent = player.RecentPoints(0, week)
	}
	recentAvg, olderAvg := baseline, baseline
	if n := min(3, len(recent)); n > 0 {
		recentAvg = stat.Mean(recent[:n], nil)
	}
	if len(recent) > 3 {
		olderAvg = stat.Mean(recent[3:min(6, len(recent))], nil)
	}
	volatility := math.Max(2.0, baseline*0.2)
	if len(recent) >= 2 {
		volatility = stat.StdDev(recent[:min(6, len(recent))], nil)
	}

	status := lc.rosterStatus[player.ID]
	ng := map[string]any{}
	if v, ok := feeds.Lookup(in.playerMetrics, player.ID); ok {
		ng = feeds.AsMap(feeds.DeepCopy(v))
	}
	ngUsage := feeds.FloatOr(ng["usage_over_expected"], 0)
	ngRoutes := feeds.FloatOr(ng["route_participation"], 0)
	ngSeparation := feeds.FloatOr(ng["avg_separation"], 0)
	ngExplosive := feeds.FloatOr(ng["explosive_play_rate"], 0)
	ngVolatility := feeds.FloatOr(ng["volatility_index"], volatility)

	dvp := 0.0
	if opp, ok := team.OpponentForWeek(week); ok {
		if v, found := feeds.Lookup(in.defenseVsPosition, opp); found {
			dvp = feeds.FloatOr(feeds.AsMap(v)[pos], 0)
		}
	}

	// projection residual
	residual := 0.0
	if v, ok := feeds.Lookup(in.marketProjections, player.ID); ok && v != nil {
		residual = feeds.FloatOr(v, baseline) - baseline
	}
	projectionResidual := p.cfg.ResidualScale*residual + 0.20*ngExplosive + 0.10*ngSeparation

	// usage trend
	usageValue := recentAvg - olderAvg
	if v, ok := feeds.Lookup(in.usageTrend, player.ID); ok && v != nil {
		usageValue = feeds.FloatOr(v, 0)
	}
	usageValue += 0.30 * ngUsage
	if pos == domain.PositionWR || pos == domain.PositionTE {
		usageValue += 0.12 * ngRoutes
	}
	scale, ok := usagePositionScale[pos]
	if !ok {
		scale = 1.0
	}
	usageTrend := p.cfg.UsageScale * usageValue * scale

	// injury opportunity
	injury := injuryStatusPenalty[status]
	teammateOut := max(0, lc.injuredCounts[team.ID][pos])
	if domain.IsOutLike(status) {
		teammateOut = max(0, teammateOut-1)
	}
	if domain.IsHealthy(status) && teammateOut > 0 {
		injury += 0.8 * float64(teammateOut)
	}

	matchupUnit := 0.2 * dvp
	matchupSignal := p.cfg.Caps[CapMatchupSignalMultiplier].Clamp(1.0 + 0.025*dvp)

	// game script
	spread := lookupFloat(in.spread, team.ID, 0)
	impliedTotal := lookupFloat(in.impliedTotal, team.ID, 22.0)
	favorite := spread < 0
	scriptBase := 0.05
	switch {
	case isPassCatcherOrQB(pos):
		scriptBase = 0.35
		if favorite {
			scriptBase = -0.30
		}
	case pos == domain.PositionRB:
		scriptBase = -0.25
		if favorite {
			scriptBase = 0.40
		}
	}
	gameScript := scriptBase + 0.08*((impliedTotal-22.0)/3.0)

	// volatility
	volatilityProxy := math.Max(0, 0.55*volatility+0.45*ngVolatility)
	volatilityAware := -0.08 * volatilityProxy
	if volatilityProxy < 4.0 {
		volatilityAware += 0.25
	}

	// weather and venue
	weather := map[string]any{}
	if v, ok := feeds.Lookup(in.teamWeather, team.ID); ok {
		weather = feeds.AsMap(v)
	}
	weatherVenue := 0.0
	passing := isPassCatcherOrQB(pos) || pos == domain.PositionK
	if truthy(weather["is_dome"]) {
		weatherVenue += pick(isPassCatcherOrQB(pos), 0.15, 0.05)
	} else {
		wind := feeds.FloatOr(weather["wind_mph"], 0)
		precip := feeds.FloatOr(weather["precip_prob"], 0)
		if wind >= 15 {
			weatherVenue -= pick(passing, 0.5, 0.1)
		}
		if wind >= 22 {
			weatherVenue -= pick(passing, 0.4, 0.1)
		}
		if precip >= 0.4 {
			weatherVenue -= pick(passing, 0.4, 0.05)
		}
	}

	// market sentiment
	sentimentScore, startDelta := 0.0, 0.0
	if v, ok := feeds.Lookup(in.sentiment, player.ID); ok {
		if m, isMap := v.(map[string]any); isMap {
			sentimentScore = feeds.FloatOr(m["score"], 0)
			startDelta = feeds.FloatOr(m["start_delta"], 0)
		} else {
			sentimentScore = feeds.FloatOr(v, 0)
		}
	}
	started := startedPct(player)
	sentiment := -0.5 * sentimentScore
	if started >= 75 && residual < 0 {
		sentiment -= math.Min(1.0, math.Abs(residual)*0.12)
	}
	if started <= 40 && residual > 0 {
		sentiment += math.Min(1.0, residual*0.12)
	}
	sentiment -= 0.10 * startDelta

	// waiver replacement value
	replacement, ok := lc.replacementByPos[pos]
	if !ok {
		replacement = baseline
	}
	starter, ok := lc.teamStarters[team.ID][pos]
	if !ok {
		starter = replacement
	}
	waiver := 0.03*(baseline-replacement) + 0.08*(baseline-starter)

	// short-term schedule cluster
	scheduleData, ok := feeds.Lookup(in.oddsSchedule, team.ID)
	if !ok || scheduleData == nil {
		scheduleData, _ = feeds.Lookup(in.marketSchedule, team.ID)
	}
	scheduleStrength := 0.0
	if list, isList := scheduleData.([]any); isList {
		horizon := max(1, p.cfg.ScheduleHorizonWeeks)
		if n := min(horizon, len(list)); n > 0 {
			selected := make([]float64, n)
			for i := 0; i < n; i++ {
				selected[i] = feeds.FloatOr(list[i], 0)
			}
			scheduleStrength = stat.Mean(selected, nil)
		}
	} else {
		scheduleStrength = feeds.FloatOr(scheduleData, 0)
	}
	scheduleCluster := 0.25*scheduleStrength + 0.05*dvp

	raw := map[string]float64{
		SignalProjectionResidual: projectionResidual,
		SignalUsageTrend:         usageTrend,
		SignalInjuryOpportunity:  injury,
		SignalMatchupUnit:        matchupUnit,
		SignalGameScript:         gameScript,
		SignalVolatilityAware:    volatilityAware,
		SignalWeatherVenue:       weatherVenue,
		SignalMarketSentiment:    sentiment,
		SignalWaiverReplacement:  waiver,
		SignalScheduleCluster:    scheduleCluster,
	}
	if p.cfg.EnableExtendedSignals {
		p.extendedSignals(raw, player, team, baseline, residual, spread, ng, lc, in)
	}
	return raw, matchupSignal, ng
}

// extendedSignals adds the seven optional signals to raw.
func (p *Provider) extendedSignals(raw map[string]float64, player *domain.Player, team *domain.Team, baseline, residual, spread float64, ng map[string]any, lc *leagueContext, in signalInputs) {
	pos := player.NormalizedPosition()

	// ownership leverage
	own, ok := lc.ownership[player.ID]
	if !ok {
		own = 0.5
	}
	posOwn, ok := lc.meanOwnershipByPos[pos]
	if !ok {
		posOwn = own
	}
	z := clip(residual/math.Max(2.0, baseline*0.35), -2.5, 2.5)
	raw[SignalPlayerTiltLeverage] = 2.0 * (posOwn - own) * z

	// player props
	vegas := 0.0
	if v, found := feeds.Lookup(in.playerProps, player.ID); found {
		if props := feeds.AsMap(v); len(props) > 0 {
			lineOpen := feeds.FloatOr(props["line_open"], baseline)
			lineCurrent := feeds.FloatOr(props["line_current"], lineOpen)
			sharp := clip(feeds.FloatOr(props["sharp_over_pct"], 0.5), 0, 1)
			edge := (lineCurrent - baseline) / math.Max(5.0, math.Abs(baseline))
			move := (lineCurrent - lineOpen) / math.Max(3.0, math.Abs(lineOpen))
			vegas = 3.0*edge + 1.8*move + 1.5*(sharp-0.5)
		}
	}
	raw[SignalVegasProps] = vegas

	// win probability and live game state
	state := map[string]any{}
	if v, found := feeds.Lookup(in.liveGameState, team.ID); found {
		state = feeds.AsMap(v)
	}
	quarter := int(feeds.FloatOr(state["quarter"], 0))
	timeRemaining := feeds.FloatOr(state["time_remaining_sec"], 900)
	scoreDiff := feeds.FloatOr(state["score_differential"], 0)
	wpInput, hasWP := feeds.Lookup(in.winProbability, team.ID)
	hasWP = hasWP && wpInput != nil
	winScript := 0.0
	if hasWP || quarter > 0 {
		teamWP := 0.5
		if hasWP {
			teamWP = clip(feeds.FloatOr(wpInput, 0.5), 0, 1)
		}
		liveWeight := clip(float64(quarter-1)/3.0, 0, 1)
		if quarter >= 4 {
			late := 1.0 - clip(timeRemaining, 0, 900)/900.0
			liveWeight = clip(liveWeight+0.5*late, 0, 1)
		}
		pressure := clip(scoreDiff/14.0, -1.5, 1.5)
		w := winProbabilityPositionWeight[pos]
		winScript = 1.8*(teamWP-0.5)*w + 0.7*liveWeight*pressure*w
	}
	raw[SignalWinProbabilityScript] = winScript

	// backup quality
	backup := 0.0
	if ratio := lookupFloat(in.backupRatio, player.ID, -1.0); ratio >= 0 {
		w := backupPositionWeight[pos]
		switch {
		case ratio < 0.40:
			backup = 0.15 * w
		case ratio > 0.80:
			backup = -0.10 * w
		}
	}
	raw[SignalBackupQuality] = backup

	// red zone
	rzShare := clip(feeds.FloatOr(ng["red_zone_touch_share"], 0), 0, 1)
	rzTrend := clip(feeds.FloatOr(ng["red_zone_touch_trend"], 0), -1, 1)
	raw[SignalRedZoneOpportunity] = 0.20*rzShare + 0.30*rzTrend

	// snap share
	snap := 0.0
	_, hasShare := ng["snap_share"]
	_, hasTrend := ng["snap_share_trend"]
	if hasShare || hasTrend {
		share := clip(feeds.FloatOr(ng["snap_share"], 0), 0, 1)
		trend := clip(feeds.FloatOr(ng["snap_share_trend"], 0), -1, 1)
		snap = 0.20*clip((share-0.50)/0.30, -1, 1) + 0.30*clip(trend/0.10, -1, 1)
	}
	raw[SignalSnapCountPercentage] = snap

	// line movement
	opening := lookupFloat(in.openingSpread, team.ID, spread)
	closing := lookupFloat(in.closingSpread, team.ID, spread)
	move := closing - opening
	direction := -1.0
	if move < 0 {
		direction = 1.0
	}
	weight, ok := lineMovePositionWeight[pos]
	if !ok {
		weight = 0.08
	}
	raw[SignalLineMovement] = weight * direction * clip(math.Abs(move), 0, 4)
}

func lookupFloat(m map[string]any, id int, def float64) float64 {
	if v, ok := feeds.Lookup(m, id); ok {
		return feeds.FloatOr(v, def)
	}
	return def
}

// startedPct returns the market started percentage, 50 when unknown.
func startedPct(p *domain.Player) float64 {
	if p.PercentStarted == nil {
		return 50.0
	}
	return *p.PercentStarted
}

func isPassCatcherOrQB(pos string) bool {
	return pos == domain.PositionQB || pos == domain.PositionWR || pos == domain.PositionTE
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		f, ok := feeds.ToFloat(v)
		return ok && f != 0
	}
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}

// clip limits v to [low, high]; non-finite input maps to the bound nearest zero.
func clip(v, low, high float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return math.Max(low, math.Min(high, v))
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
