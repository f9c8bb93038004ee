package model

// CheapSharkStore /stores 返回项
type CheapSharkStore struct {
	StoreID   string `json:"storeID"`
	StoreName string `json:"storeName"`
	IsActive  int    `json:"isActive"`
}

// CheapSharkDeal /deals 返回项，价格为字符串形式的小数
type CheapSharkDeal struct {
	DealID      string `json:"dealID"`
	GameID      string `json:"gameID"`
	Title       string `json:"title"`
	NormalPrice string `json:"normalPrice"`
	SalePrice   string `json:"salePrice"`
	Savings     string `json:"savings"`
	Thumb       string `json:"thumb"`
	SteamAppID  string `json:"steamAppID"`
	StoreID     string `json:"storeID"`
	ReleaseDate int64  `json:"releaseDate"` // unix 秒，0 表示未知
}

// CheapSharkGameLookup /games?id= 返回
type CheapSharkGameLookup struct {
	Info struct {
		Title      string  `json:"title"`
		SteamAppID *string `json:"steamAppID"`
		Thumb      string  `json:"thumb"`
	} `json:"info"`
}
