package matching

import "github.com/alanyoungcy/crossarb/internal/domain"

// DefaultTables returns a fresh copy of the builtin alias tables. Callers may
// mutate the result.
func DefaultTables() domain.AliasTables {
	return domain.AliasTables{
		Teams:   defaultTeams(),
		Leagues: defaultLeagues(),
	}
}

func defaultTeams() map[string]string {
	return map[string]string{
		// College
		"conn": "connecticut", "uconn": "connecticut",
		"miss": "mississippi", "ole miss": "mississippi",
		"nc state": "north carolina state", "ncst": "north carolina state",
		"unc": "north carolina",
		"uva": "virginia", "vtech": "virginia tech",
		"lsu": "louisiana state",
		"usc": "southern california",
		"ucla": "university of california los angeles",
		"smu": "southern methodist", "tcu": "texas christian",
		"byu": "brigham young", "ucf": "central florida",
		"fsu": "florida state",
		"psu": "penn state", "penn st": "penn state",
		"mich st": "michigan state", "msu": "michigan state",
		"ohio st": "ohio state", "osu": "ohio state",
		"wash st": "washington state", "wazu": "washington state",
		"okla st": "oklahoma state", "okst": "oklahoma state",
		"kansas st": "kansas state", "ksu": "kansas state",
		"iowa st": "iowa state", "isu": "iowa state",
		"oregon st": "oregon state", "orst": "oregon state",
		"arizona st": "arizona state", "asu": "arizona state",
		"st johns": "st. john's", "st marys": "st. mary's",
		"miami fl": "miami", "miami (fl)": "miami",
		"ri": "rhode island", "uri": "rhode island",
		"mass": "massachusetts", "umass": "massachusetts",
		"quin": "quinnipiac", "duq": "duquesne",
		"niag": "niagara", "fair": "fairfield",
		// NBA
		"atl": "hawks", "bos": "celtics", "bkn": "nets", "cha": "hornets",
		"chi": "bulls", "cle": "cavaliers", "dal": "mavericks", "den": "nuggets",
		"det": "pistons", "gsw": "warriors", "hou": "rockets", "ind": "pacers",
		"lac": "clippers", "lal": "lakers", "mem": "grizzlies", "mia": "heat",
		"mil": "bucks", "min": "timberwolves", "nop": "pelicans", "nyk": "knicks",
		"okc": "thunder", "orl": "magic", "phi": "76ers", "phx": "suns",
		"por": "trail blazers", "sac": "kings", "sas": "spurs", "tor": "raptors",
		"uta": "jazz", "was": "wizards",
		// NHL
		"ana": "ducks", "ari": "coyotes", "buf": "sabres",
		"cgy": "flames", "car": "hurricanes", "col": "avalanche",
		"cbj": "blue jackets", "edm": "oilers",
		"fla": "panthers", "lak": "kings", "mtl": "canadiens",
		"nsh": "predators", "njd": "devils", "nyi": "islanders", "nyr": "rangers",
		"ott": "senators", "pit": "penguins", "sjs": "sharks",
		"sea": "kraken", "stl": "blues", "tbl": "lightning", "van": "canucks",
		"vgk": "golden knights", "wpg": "jets", "wsh": "capitals",
		// NFL
		"bal": "ravens", "cin": "bengals", "gb": "packers",
		"jax": "jaguars", "kc": "chiefs",
		"lar": "rams", "lv": "raiders",
		"ne": "patriots", "no": "saints", "nyg": "giants",
		"nyj": "jets", "sf": "49ers", "tb": "buccaneers", "ten": "titans",
		// Fight results
		"ko": "knockout", "tko": "technical knockout",

		// City names as they appear in Kalshi titles.
		// NBA
		"atlanta": "hawks", "boston": "celtics", "brooklyn": "nets",
		"charlotte": "hornets", "chicago": "bulls", "cleveland": "cavaliers",
		"dallas": "mavericks", "denver": "nuggets", "detroit": "pistons",
		"golden state": "warriors", "houston": "rockets", "indiana": "pacers",
		"los angeles c": "clippers", "los angeles l": "lakers",
		"la clippers": "clippers", "la lakers": "lakers",
		"memphis": "grizzlies", "miami": "heat",
		"milwaukee": "bucks", "minnesota": "timberwolves",
		"new orleans": "pelicans", "new york": "knicks",
		"oklahoma city": "thunder", "orlando": "magic",
		"philadelphia": "76ers", "phoenix": "suns",
		"portland": "trail blazers", "sacramento": "kings",
		"san antonio": "spurs", "toronto": "raptors",
		"utah": "jazz", "washington": "wizards",
		// NHL
		"anaheim": "ducks", "arizona": "coyotes", "buffalo": "sabres",
		"calgary": "flames", "carolina": "hurricanes", "colorado": "avalanche",
		"columbus": "blue jackets", "edmonton": "oilers",
		"florida": "panthers", "los angeles k": "kings",
		"la kings": "kings", "montreal": "canadiens",
		"nashville": "predators", "new jersey": "devils",
		"ny islanders": "islanders", "ny rangers": "rangers",
		"ottawa": "senators", "pittsburgh": "penguins",
		"san jose": "sharks", "seattle": "kraken",
		"st. louis": "blues", "st louis": "blues",
		"tampa bay": "lightning", "vancouver": "canucks",
		"vegas": "golden knights", "las vegas": "golden knights",
		"winnipeg": "jets",
		// NFL
		"baltimore": "ravens", "cincinnati": "bengals",
		"green bay": "packers", "jacksonville": "jaguars",
		"kansas city": "chiefs", "los angeles r": "rams",
		"la rams": "rams", "la chargers": "chargers",
		"las vegas raiders": "raiders", "los angeles ch": "chargers",
		"new england": "patriots", "new york g": "giants",
		"new york j": "jets", "ny giants": "giants", "ny jets": "jets",
		"san francisco": "49ers", "tennessee": "titans",
		// MLB
		"los angeles a": "angels", "la angels": "angels",
		"los angeles d": "dodgers", "la dodgers": "dodgers",
		"ny mets": "mets", "ny yankees": "yankees",
		"new york m": "mets", "new york y": "yankees",
		"st. louis cardinals": "cardinals",
		"texas": "rangers", "oakland": "athletics",
		"tampa bay rays": "rays",
		// Full franchise names.
		"atlanta hawks": "hawks", "boston celtics": "celtics", "brooklyn nets": "nets",
		"charlotte hornets": "hornets", "chicago bulls": "bulls", "cleveland cavaliers": "cavaliers",
		"dallas mavericks": "mavericks", "denver nuggets": "nuggets", "detroit pistons": "pistons",
		"golden state warriors": "warriors", "houston rockets": "rockets", "indiana pacers": "pacers",
		"los angeles clippers": "clippers", "los angeles lakers": "lakers",
		"memphis grizzlies": "grizzlies", "miami heat": "heat", "milwaukee bucks": "bucks",
		"minnesota timberwolves": "timberwolves", "new orleans pelicans": "pelicans",
		"new york knicks": "knicks", "oklahoma city thunder": "thunder", "orlando magic": "magic",
		"philadelphia 76ers": "76ers", "phoenix suns": "suns", "portland trail blazers": "trail blazers",
		"sacramento kings": "kings", "san antonio spurs": "spurs", "toronto raptors": "raptors",
		"utah jazz": "jazz", "washington wizards": "wizards",
	}
}

func defaultLeagues() map[string]string {
	return map[string]string{
		// Kalshi series tickers
		"KXNBAGAME": "NBA", "KXNHLGAME": "NHL", "KXNFLGAME": "NFL",
		"KXMLBGAME": "MLB", "KXWNBAGAME": "WNBA",
		"KXNCAAMBGAME": "NCAAMB", "KXNCAAWBGAME": "NCAAWB",
		"KXNCAAFGAME": "NCAAF", "KXNCAABGAME": "NCAAMB",
		"KXNCAAHOCKEYGAME": "NCAAHOCKEY", "KXNCAALAXGAME": "NCAALAX",
		"KXUFCFIGHT": "UFC", "KXBOXINGFIGHT": "BOXING",
		"KXUNRIVALEDGAME": "UNRIVALED", "KXEUROLEAGUEGAME": "EUROLEAGUE",
		"KXEUROCUPGAME": "EUROCUP", "KXKBLGAME": "KBL",
		"KXCBAGAME": "CBA", "KXJBLEAGUEGAME": "JBLEAGUE",
		"KXNBLGAME": "NBL",
		"KXAHLGAME": "AHL", "KXKHLGAME": "KHL", "KXSHLGAME": "SHL",
		"KXATPGAME": "ATP", "KXWTAGAME": "WTA",
		"KXLOLGAME": "LOL", "KXCS2GAME": "CS2",
		"KXVALORANTGAME": "VALORANT", "KXDOTA2GAME": "DOTA2",
		// Polymarket league codes
		"NBA": "NBA", "NHL": "NHL", "NFL": "NFL", "MLB": "MLB",
		"UFC": "UFC", "BOXING": "BOXING", "TENNIS": "TENNIS",
		"CBB": "NCAAMB", "NCAAMB": "NCAAMB",
		"CWBB": "NCAAWB", "NCAAWB": "NCAAWB",
		"CFB": "NCAAF", "NCAAF": "NCAAF",
	}
}
