package catalog

var defaultBanks = []Bank{
	{ID: "kcb", Name: "KCB Bank", Logo: "banks/kcb.png"},
	{ID: "equity", Name: "Equity Bank", Logo: "banks/equity.png"},
	{ID: "coop", Name: "Co-operative Bank", Logo: "banks/coop.png"},
	{ID: "ncba", Name: "NCBA Bank", Logo: "banks/ncba.png"},
	{ID: "absa", Name: "Absa Bank Kenya", Logo: "banks/absa.png"},
	{ID: "stanbic", Name: "Stanbic Bank", Logo: "banks/stanbic.png"},
	{ID: "stanchart", Name: "Standard Chartered", Logo: "banks/stanchart.png"},
	{ID: "dtb", Name: "Diamond Trust Bank", Logo: "banks/dtb.png"},
	{ID: "im", Name: "I&M Bank", Logo: "banks/im.png"},
	{ID: "family", Name: "Family Bank", Logo: "banks/family.png"},
}

var defaultCountries = []Country{
	{ISO: "KE", Name: "Kenya", CallingCode: "+254", Flag: "🇰🇪"},
	{ISO: "UG", Name: "Uganda", CallingCode: "+256", Flag: "🇺🇬"},
	{ISO: "TZ", Name: "Tanzania", CallingCode: "+255", Flag: "🇹🇿"},
	{ISO: "RW", Name: "Rwanda", CallingCode: "+250", Flag: "🇷🇼"},
	{ISO: "ET", Name: "Ethiopia", CallingCode: "+251", Flag: "🇪🇹"},
	{ISO: "NG", Name: "Nigeria", CallingCode: "+234", Flag: "🇳🇬"},
	{ISO: "GH", Name: "Ghana", CallingCode: "+233", Flag: "🇬🇭"},
	{ISO: "ZA", Name: "South Africa", CallingCode: "+27", Flag: "🇿🇦"},
	{ISO: "US", Name: "United States", CallingCode: "+1", Flag: "🇺🇸"},
	{ISO: "GB", Name: "United Kingdom", CallingCode: "+44", Flag: "🇬🇧"},
}
