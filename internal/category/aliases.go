package category

// Aliases maps slugified source labels to canonical categories. Keys cover the
// Portuguese marketplace taxonomy, its English translation, and common
// free-text spellings.
//
//nolint:gochecknoglobals // Static lookup table.
var Aliases = map[string]string{
	// Beauty
	"beleza-saude":  Beauty,
	"health-beauty": Beauty,
	"perfumaria":    Beauty,
	"perfumery":     Beauty,
	"cosmetics":     Beauty,
	"makeup":        Beauty,
	"skincare":      Beauty,

	// Electronics
	"informatica-acessorios":   Electronics,
	"computers-accessories":    Electronics,
	"telefonia":                Electronics,
	"telephony":                Electronics,
	"telefonia-fixa":           Electronics,
	"fixed-telephony":          Electronics,
	"eletronicos":              Electronics,
	"pcs":                      Electronics,
	"computers":                Electronics,
	"tablets-impressao-imagem": Electronics,
	"tablets-printing-image":   Electronics,
	"audio":                    Electronics,
	"tech":                     Electronics,
	"technology":               Electronics,

	// Gaming
	"consoles-games": Gaming,
	"games":          Gaming,
	"video-games":    Gaming,

	// Health
	"fitness":             Health,
	"wellness":            Health,
	"fraldas-higiene":     Health,
	"diapers-and-hygiene": Health,

	// Home
	"moveis-decoracao":      Home,
	"furniture-decor":       Home,
	"cama-mesa-banho":       Home,
	"bed-bath-table":        Home,
	"utilidades-domesticas": Home,
	"housewares":            Home,
	"casa-construcao":       Home,
	"home-construction":     Home,
	"casa-conforto":         Home,
	"home-confort":          Home,
	"home-decor":            Home,
	"moveis-sala":           Home,
	"furniture-living-room": Home,

	// Kitchen
	"eletrodomesticos": Kitchen,
	"home-appliances":  Kitchen,
	"eletroportateis":  Kitchen,
	"small-appliances": Kitchen,
	"la-cuisine":       Kitchen,
	"cooking":          Kitchen,

	"portateis-cozinha-e-preparadores-de-alimentos": Kitchen,
	"portable-kitchen-and-food-preparers":           Kitchen,

	// Fashion
	"relogios-presentes":          Fashion,
	"watches-gifts":               Fashion,
	"fashion-bolsas-e-acessorios": Fashion,
	"fashion-bags-accessories":    Fashion,
	"fashion-calcados":            Fashion,
	"fashion-shoes":               Fashion,
	"fashion-roupa-masculina":     Fashion,
	"fashion-male-clothing":       Fashion,
	"fashion-roupa-feminina":      Fashion,
	"fashio-female-clothing":      Fashion,
	"apparel":                     Fashion,

	// Travel
	"malas-acessorios":    Travel,
	"luggage-accessories": Travel,

	// Crafts
	"artes-e-artesanato":    Crafts,
	"arts-and-craftmanship": Crafts,
	"diy":                   Crafts,

	// Art
	"artes": Art,

	// Pets
	"pet-shop": Pets,
	"pet":      Pets,

	// Sports
	"esporte-lazer":  Sports,
	"sports-leisure": Sports,
	"outdoor":        Sports,

	// Music
	"instrumentos-musicais": Music,
	"musical-instruments":   Music,
	"musica":                Music,
	"cds-dvds-musicais":     Music,
	"cds-dvds-musicals":     Music,

	// Books
	"livros-interesse-geral": Books,
	"books-general-interest": Books,
	"livros-tecnicos":        Books,
	"books-technical":        Books,
	"livros-importados":      Books,
	"books-imported":         Books,

	// Toys, baby
	"brinquedos": Toys,
	"bebes":      Baby,

	// Auto
	"automotivo": Auto,

	// Office
	"papelaria":         Office,
	"stationery":        Office,
	"moveis-escritorio": Office,
	"office-furniture":  Office,

	// Garden
	"ferramentas-jardim": Garden,
	"garden-tools":       Garden,

	// Food
	"alimentos":         Food,
	"bebidas":           Food,
	"drinks":            Food,
	"alimentos-bebidas": Food,
	"food-drink":        Food,

	// Finance
	"seguros-e-servicos":    Finance,
	"security-and-services": Finance,
}
