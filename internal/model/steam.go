package model

import "encoding/json"

// SteamAppDetails /api/appdetails 响应中单个 appid 的内容
type SteamAppDetails struct {
	Success bool `json:"success"`
	Data    *struct {
		DetailedDescription string   `json:"detailed_description"`
		Developers          []string `json:"developers"`
		Publishers          []string `json:"publishers"`
		Screenshots         []struct {
			PathFull string `json:"path_full"`
		} `json:"screenshots"`
		// 无要求时 Steam 返回空数组而不是对象
		PCRequirements SteamRequirements `json:"pc_requirements"`
	} `json:"data"`
}

// SteamRequirements pc_requirements，内容为 HTML 片段
type SteamRequirements struct {
	Minimum     string `json:"minimum"`
	Recommended string `json:"recommended"`
}

// UnmarshalJSON 兼容 [] 形式
func (r *SteamRequirements) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		*r = SteamRequirements{}
		return nil
	}
	type plain SteamRequirements
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = SteamRequirements(p)
	return nil
}
