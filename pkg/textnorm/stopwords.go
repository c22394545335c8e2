package textnorm

// GermanStopwords is the default stopword set. The corpus this engine
// learns from is German-speaking, so articles, pronouns, auxiliaries
// and the usual filler words are excluded from keys and training.
func GermanStopwords() map[string]struct{} {
	words := []string{
		// articles
		"der", "die", "das", "dem", "den", "des", "ein", "eine", "einer", "eines", "einem", "einen",

		// pronouns
		"ich", "du", "er", "sie", "es", "wir", "ihr", "mir", "mich", "dir", "dich",
		"uns", "euch", "ihn", "ihm", "ihnen", "man", "wer", "was", "jemand", "niemand", "etwas", "alles",

		// possessives
		"mein", "meine", "meiner", "meines", "meinem", "meinen",
		"dein", "deine", "deiner", "deines", "deinem", "deinen",
		"sein", "seine", "seiner", "seines", "seinem", "seinen",
		"ihre", "ihrer", "ihres", "ihrem", "ihren",
		"unser", "unsere", "unserer", "unseres", "unserem", "unseren",
		"euer", "eure", "eurer", "eures", "eurem", "euren",

		// auxiliary and modal verbs
		"bin", "bist", "ist", "sind", "war", "waren", "gewesen",
		"haben", "habe", "hast", "hat", "hatten", "gehabt",
		"werden", "werde", "wirst", "wird", "wurden", "geworden",
		"können", "kann", "könnt", "konnte", "konnten",
		"müssen", "muss", "musst", "müsst", "musste", "mussten",
		"dürfen", "darf", "durfte", "durften",
		"sollen", "soll", "sollte", "sollten",
		"wollen", "will", "wollte", "wollten",
		"mögen", "mag", "mochte", "mochten",

		// conjunctions and particles
		"und", "oder", "aber", "sondern", "denn", "dass", "da", "weil", "wenn", "falls",
		"ob", "obwohl", "während", "bis", "bevor", "nachdem", "seit", "sobald", "solange",
		"wie", "als", "so", "doch", "eben", "halt", "wohl", "schon", "noch", "auch", "nur",

		// prepositions
		"an", "auf", "in", "im", "aus", "zu", "zum", "zur", "mit", "nach", "über", "unter",
		"für", "gegen", "ohne", "um", "bei", "von", "vor", "hinter", "zwischen",

		// adverbs and time fillers
		"immer", "nie", "oft", "selten", "heute", "morgen", "gestern",
		"jetzt", "gleich", "bald", "wieder", "sehr", "viel", "mehr", "weniger",

		// Austrian dialect fillers
		"oba", "na", "mei", "ois", "bissl",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
