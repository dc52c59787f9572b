package event

import (
	"regexp"
	"strings"
)

// deathCauses is the vocabulary of known vanilla/Forge death messages,
// matched against the text immediately following the player name. Kept
// as a data table so new game versions can extend it without touching
// the matching logic.
var deathCauses = []string{
	`died`,
	`drowned`,
	`experienced kinetic energy`,
	`intentional game design`,
	`blew up`,
	`blown up`,
	`pummeled`,
	`killed`,
	`hit the ground too hard`,
	`fell(?: into a ravine)?`,
	`left the confines of this world`,
	`squished`,
	`suffocated`,
	`was burnt`,
	`cactus`,
	`was slain(?: by .+)?`,
	`was shot(?: by .+)?`,
	`burned to death`,
	`tried to swim in lava`,
	`got melted by a blaze`,
	`failed to escape the Nether`,
	`fell out of the world`,
	`withered away`,
	`discovered the void`,
	`discovered the floor was lava`,
	`was doomed by the Wither`,
	`got struck by lightning`,
	`was pricked to death`,
	`got stung by a bee`,
	`was stung to death`,
	`doomed to fall`,
	`starved(?: to death)?`,
	`was doomed by a witch`,
	`was fireballed`,
	`was blown off a cliff`,
	`got suffocated in a wall`,
	`impaled`,
	`squashed`,
	`went up in flames`,
	`didn['’]t want to live`,
	`skewered`,
	`walked into fire`,
	`went off with a bang`,
	`walked into the danger zone`,
	`was killed by magic`,
	`froze to death`,
	`obliterated`,
}

// logPrefix skips the optional Forge/vanilla timestamp+thread prefix
// ("[12:34:56] [Server thread/INFO]: ").
const logPrefix = `(?:^.*?:\s+)?`

// playerName is a Minecraft-valid account name.
const playerName = `[A-Za-z0-9_]{3,16}`

var (
	joinRe = regexp.MustCompile(`(?i)` + logPrefix + `(` + playerName + `) joined the game`)

	// Death matching is two-stage: pull out a candidate name plus the
	// text that immediately follows it, then check that text against
	// the cause vocabulary. A name with no recognized cause is not a
	// death.
	deathSubjectRe = regexp.MustCompile(logPrefix + `(` + playerName + `)\s+(\S.*)$`)
	deathCauseRe   = regexp.MustCompile(`(?i)^(?:` + strings.Join(deathCauses, "|") + `)\b`)

	statsRe   = regexp.MustCompile(`(?i)(?:<` + playerName + `>\s*)?!lives\b`)
	triggerRe = regexp.MustCompile(`(?i)(?:<` + playerName + `>\s*)?!smite\b`)
)

// serverTag marks lines echoed by the server console; those quote
// arbitrary text and must never count as deaths.
const serverTag = "[Server]"

// Classify runs every rule over the line independently and returns one
// event per matching rule, in rule order. Most lines yield zero or one
// event; a line matching several rules yields several.
func Classify(line string) []Event {
	var events []Event

	if m := joinRe.FindStringSubmatch(line); m != nil {
		events = append(events, Event{Kind: KindJoin, Player: m[1], Raw: line})
	}

	if !chatLike(line) {
		if m := deathSubjectRe.FindStringSubmatch(line); m != nil {
			if deathCauseRe.MatchString(m[2]) {
				events = append(events, Event{Kind: KindDeath, Player: m[1], Raw: line})
			}
		}
	}

	if statsRe.MatchString(line) {
		events = append(events, Event{Kind: KindStats, Raw: line})
	}

	if triggerRe.MatchString(line) {
		events = append(events, Event{Kind: KindTrigger, Raw: line})
	}

	return events
}

// chatLike reports whether the line carries player chat or a server
// echo. Chat names are bracketed ("<Bob> i died lol"), so any line with
// both bracket characters is ineligible for death classification.
func chatLike(line string) bool {
	if strings.Contains(line, "<") && strings.Contains(line, ">") {
		return true
	}
	return strings.Contains(line, serverTag)
}
