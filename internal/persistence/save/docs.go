package save

import (
	"os"
	"path/filepath"

	"villagekeep/internal/sim/village"
)

// heroDoc tags a hero with the chief join key.
type heroDoc struct {
	*village.Hero
	ChiefID int `json:"chief_id"`
}

// petDoc is one hero-owned pet, embedding the owning hero's remaining
// fields. Field names are fixed by the export format.
type petDoc struct {
	IDHero         int    `json:"id_hero"`
	ChiefID        int    `json:"chief_id"`
	Name           string `json:"name"`
	Img            string `json:"img,omitempty"`
	Level          int    `json:"level"`
	Exp            int    `json:"exp"`
	Origin         string `json:"origin,omitempty"`
	Favorite       bool   `json:"favorite,omitempty"`
	ResourceType   string `json:"resourceType,omitempty"`
	PendingCount   int    `json:"pendingCount,omitempty"`
	LastCollection string `json:"lastCollection,omitempty"`
	ExploreDay     string `json:"exploreDay,omitempty"`
	Desc           string `json:"desc,omitempty"`

	OwnerHero village.Hero `json:"owner_hero"`
}

// chiefDoc is the villagechief export: ability fields dropped into a
// sibling document, level/exp/avatar under their localized aliases,
// inventory and stats as nested blocks.
type chiefDoc struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	Nivel       int            `json:"nivel"`
	Experiencia int            `json:"experiencia"`
	Img         string         `json:"img,omitempty"`
	Inventory   map[string]int `json:"inventory"`
	Stats       map[string]int `json:"stats"`
}

// partnerDoc drops the partner's own id and carries the chief join key.
type partnerDoc struct {
	ChiefID     int            `json:"chief_id"`
	Name        string         `json:"name"`
	Nivel       int            `json:"nivel"`
	Experiencia int            `json:"experiencia"`
	Img         string         `json:"img,omitempty"`
	Inventory   map[string]int `json:"inventory"`
	Stats       map[string]int `json:"stats"`
}

type familiarDoc struct {
	ChiefID int    `json:"chief_id"`
	Name    string `json:"name"`
	Kind    string `json:"kind,omitempty"`
	Level   int    `json:"level"`
	Img     string `json:"img,omitempty"`
}

// rosterDoc is one showcase entry with its best-effort embedded image.
type rosterDoc struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Img           string `json:"img,omitempty"`
	Img64         string `json:"img64"`
	Desc          string `json:"desc,omitempty"`
	LevelQuantity int    `json:"level_quantity"`
}

func (s *Serializer) writeChief(st *village.State, chiefID int) error {
	if st.Chief == nil {
		return nil
	}
	c := st.Chief
	doc := chiefDoc{
		ID:          chiefID,
		Name:        c.Name,
		Nivel:       c.Level,
		Experiencia: c.Exp,
		Img:         c.Avatar,
		Inventory:   orEmpty(c.Inventory),
		Stats:       orEmpty(c.Stats),
	}
	if err := s.writeJSON(ChiefFile, doc); err != nil {
		return err
	}
	abilities := c.Abilities
	if abilities == nil {
		abilities = []village.Ability{}
	}
	return s.writeJSON(ChiefAbilitiesFile, abilities)
}

func (s *Serializer) writeHeroes(st *village.State, chiefID int) error {
	docs := make([]heroDoc, 0, len(st.Heroes))
	for _, h := range st.Heroes {
		if h == nil {
			continue
		}
		docs = append(docs, heroDoc{Hero: h, ChiefID: chiefID})
	}
	return s.writeJSON(HeroesFile, docs)
}

// writePets writes the pets document with one entry per hero-with-pet.
// When no hero has a pet the document is not written at all; absence is
// meaningful, not an empty list.
func (s *Serializer) writePets(st *village.State, chiefID int) (int, error) {
	var docs []petDoc
	for _, h := range st.Heroes {
		if !h.HasPet() {
			continue
		}
		owner := *h
		owner.Pet = nil
		p := h.Pet
		docs = append(docs, petDoc{
			IDHero:         h.ID,
			ChiefID:        chiefID,
			Name:           p.Name,
			Img:            p.Img,
			Level:          p.Level,
			Exp:            p.Exp,
			Origin:         p.Origin,
			Favorite:       p.Favorite,
			ResourceType:   p.ResourceType,
			PendingCount:   p.PendingCount,
			LastCollection: p.LastCollection,
			ExploreDay:     p.ExploreDay,
			Desc:           p.Desc,
			OwnerHero:      owner,
		})
	}
	if len(docs) == 0 {
		if err := os.Remove(filepath.Join(s.dir, PetsFile)); err != nil && !os.IsNotExist(err) {
			return 0, err
		}
		return 0, nil
	}
	return len(docs), s.writeJSON(PetsFile, docs)
}

func (s *Serializer) writePartner(st *village.State, chiefID int) error {
	p := st.Partner
	doc := partnerDoc{
		ChiefID:     chiefID,
		Name:        p.Name,
		Nivel:       p.Level,
		Experiencia: p.Exp,
		Img:         p.Avatar,
		Inventory:   orEmpty(p.Inventory),
		Stats:       orEmpty(p.Stats),
	}
	if err := s.writeJSON(PartnerFile, doc); err != nil {
		return err
	}
	abilities := p.Abilities
	if abilities == nil {
		abilities = []village.Ability{}
	}
	return s.writeJSON(PartnerAbilities, abilities)
}

func (s *Serializer) writeFamiliars(st *village.State, chiefID int) error {
	docs := make([]familiarDoc, 0, len(st.Familiars))
	for _, f := range st.Familiars {
		docs = append(docs, familiarDoc{
			ChiefID: chiefID,
			Name:    f.Name,
			Kind:    f.Kind,
			Level:   f.Level,
			Img:     f.Img,
		})
	}
	return s.writeJSON(FamiliarsFile, docs)
}

func (s *Serializer) writeRoster(category, file string, entries []village.RosterEntry) error {
	docs := make([]rosterDoc, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, rosterDoc{
			ID:            e.ID,
			Name:          e.Name,
			Img:           e.Img,
			Img64:         s.embedImage(category, e),
			Desc:          e.Desc,
			LevelQuantity: e.LevelQuantity,
		})
	}
	return s.writeJSON(file, docs)
}

func orEmpty(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
