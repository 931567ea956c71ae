package village

// Chief is the root administrative actor. Its id is the join key shared
// by every chief-tagged derived save document; it is established lazily
// on the first save (defaulting to 1) and stays stable for the session.
type Chief struct {
	ID     int    `json:"id,omitempty"`
	Name   string `json:"name"`
	Level  int    `json:"level"`
	Exp    int    `json:"exp"`
	Avatar string `json:"avatar,omitempty"`

	Inventory map[string]int `json:"inventory,omitempty"`
	Stats     map[string]int `json:"stats,omitempty"`

	Abilities []Ability `json:"abilities,omitempty"`
}

type Partner struct {
	ID     int    `json:"id,omitempty"`
	Name   string `json:"name"`
	Level  int    `json:"level"`
	Exp    int    `json:"exp"`
	Avatar string `json:"avatar,omitempty"`

	Inventory map[string]int `json:"inventory,omitempty"`
	Stats     map[string]int `json:"stats,omitempty"`

	Abilities []Ability `json:"abilities,omitempty"`
}

type Ability struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
	Desc  string `json:"desc,omitempty"`
}

type Familiar struct {
	ID    int    `json:"id,omitempty"`
	Name  string `json:"name"`
	Kind  string `json:"kind,omitempty"`
	Level int    `json:"level"`
	Img   string `json:"img,omitempty"`
}

// RosterEntry is a showcase roster line (Elites, SpecialSoldiers,
// SpecialCitizens). Img is a reference (path or embedded data URI); the
// serializer resolves it into a self-contained payload at save time.
type RosterEntry struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Img           string `json:"img,omitempty"`
	Desc          string `json:"desc,omitempty"`
	LevelQuantity int    `json:"level_quantity"`
}
