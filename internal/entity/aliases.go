package entity

// builtin is the curated alias table. Canonical keys are the league team
// codes used in origin slugs; every alias is matched after Key folding, so
// "St. Louis" and "stlouis" are the same alias.
var builtin = Table{
	"nba": {
		"atl": {"atlanta", "hawks"},
		"bos": {"boston", "celtics"},
		"bkn": {"brooklyn", "nets", "brk"},
		"cha": {"charlotte", "hornets", "cho"},
		"chi": {"chicago", "bulls"},
		"cle": {"cleveland", "cavaliers", "cavs"},
		"dal": {"dallas", "mavericks", "mavs"},
		"den": {"denver", "nuggets"},
		"det": {"detroit", "pistons"},
		"gsw": {"golden state", "warriors", "gs"},
		"hou": {"houston", "rockets"},
		"ind": {"indiana", "pacers"},
		"lac": {"la clippers", "los angeles clippers", "clippers"},
		"lal": {"la lakers", "los angeles lakers", "lakers"},
		"mem": {"memphis", "grizzlies"},
		"mia": {"miami", "heat"},
		"mil": {"milwaukee", "bucks"},
		"min": {"minnesota", "timberwolves", "twolves", "wolves"},
		"nop": {"new orleans", "pelicans", "no"},
		"nyk": {"new york", "knicks", "ny"},
		"okc": {"oklahoma city", "thunder"},
		"orl": {"orlando", "magic"},
		"phi": {"philadelphia", "76ers", "sixers"},
		"phx": {"phoenix", "suns", "pho"},
		"por": {"portland", "trail blazers", "blazers"},
		"sac": {"sacramento", "kings"},
		"sas": {"san antonio", "spurs", "sa"},
		"tor": {"toronto", "raptors"},
		"uta": {"utah", "jazz"},
		"was": {"washington", "wizards", "wsh"},
	},
	"nfl": {
		"ari": {"arizona", "cardinals"},
		"atl": {"atlanta", "falcons"},
		"bal": {"baltimore", "ravens"},
		"buf": {"buffalo", "bills"},
		"car": {"carolina", "panthers"},
		"chi": {"chicago", "bears"},
		"cin": {"cincinnati", "bengals"},
		"cle": {"cleveland", "browns"},
		"dal": {"dallas", "cowboys"},
		"den": {"denver", "broncos"},
		"det": {"detroit", "lions"},
		"gb": {"green bay", "packers"},
		"hou": {"houston", "texans"},
		"ind": {"indianapolis", "colts"},
		"jax": {"jacksonville", "jaguars", "jac"},
		"kc": {"kansas city", "chiefs"},
		"lv": {"las vegas", "raiders"},
		"lac": {"la chargers", "los angeles chargers", "chargers"},
		"lar": {"la rams", "los angeles rams", "rams", "la"},
		"mia": {"miami", "dolphins"},
		"min": {"minnesota", "vikings"},
		"ne": {"new england", "patriots"},
		"no": {"new orleans", "saints"},
		"nyg": {"new york giants", "giants"},
		"nyj": {"new york jets", "jets"},
		"phi": {"philadelphia", "eagles"},
		"pit": {"pittsburgh", "steelers"},
		"sf": {"san francisco", "49ers", "niners"},
		"sea": {"seattle", "seahawks"},
		"tb": {"tampa bay", "buccaneers", "bucs"},
		"ten": {"tennessee", "titans"},
		"was": {"washington", "commanders", "wsh"},
	},
	"nhl": {
		"ana": {"anaheim", "ducks"},
		"bos": {"boston", "bruins"},
		"buf": {"buffalo", "sabres"},
		"cgy": {"calgary", "flames"},
		"car": {"carolina", "hurricanes"},
		"chi": {"chicago", "blackhawks"},
		"col": {"colorado", "avalanche"},
		"cbj": {"columbus", "blue jackets"},
		"dal": {"dallas", "stars"},
		"det": {"detroit", "red wings"},
		"edm": {"edmonton", "oilers"},
		"fla": {"florida", "panthers"},
		"lak": {"los angeles kings", "la kings", "kings", "la"},
		"min": {"minnesota", "wild"},
		"mtl": {"montreal", "canadiens"},
		"nsh": {"nashville", "predators"},
		"njd": {"new jersey", "devils", "nj"},
		"nyi": {"new york islanders", "islanders"},
		"nyr": {"new york rangers", "rangers"},
		"ott": {"ottawa", "senators"},
		"phi": {"philadelphia", "flyers"},
		"pit": {"pittsburgh", "penguins"},
		"sjs": {"san jose", "sharks", "sj"},
		"sea": {"seattle", "kraken"},
		"stl": {"st louis", "st. louis", "blues"},
		"tbl": {"tampa bay", "lightning", "tb"},
		"tor": {"toronto", "maple leafs"},
		"uta": {"utah", "mammoth"},
		"van": {"vancouver", "canucks"},
		"vgk": {"vegas", "golden knights"},
		"wsh": {"washington", "capitals"},
		"wpg": {"winnipeg", "jets"},
	},
	"cbb": {
		"duke":  {"blue devils"},
		"unc":   {"north carolina", "tar heels"},
		"uk":    {"kentucky", "wildcats"},
		"ku":    {"kansas", "jayhawks"},
		"gonz":  {"gonzaga", "bulldogs", "zags"},
		"uconn": {"connecticut", "huskies", "conn"},
		"pur":   {"purdue", "boilermakers"},
		"hou":   {"houston", "cougars"},
		"msu":   {"michigan state", "spartans", "mist"},
		"mich":  {"michigan", "wolverines"},
		"ariz":  {"arizona", "wildcats"},
		"bay":   {"baylor", "bears"},
		"aub":   {"auburn", "tigers"},
		"ala":   {"alabama", "crimson tide"},
		"tenn":  {"tennessee", "volunteers", "vols"},
		"ill":   {"illinois", "fighting illini", "illini"},
	},
	"cfb": {
		"uga":  {"georgia", "bulldogs"},
		"ala":  {"alabama", "crimson tide"},
		"osu":  {"ohio state", "buckeyes", "ohst"},
		"mich": {"michigan", "wolverines"},
		"tex":  {"texas", "longhorns"},
		"psu":  {"penn state", "nittany lions"},
		"nd":   {"notre dame", "fighting irish"},
		"ore":  {"oregon", "ducks"},
		"lsu":  {"louisiana state", "tigers"},
		"clem": {"clemson"},
		"fsu":  {"florida state", "seminoles"},
		"tenn": {"tennessee", "volunteers", "vols"},
	},
}
