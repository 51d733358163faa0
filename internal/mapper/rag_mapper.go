package mapper

import (
	"swimcoach-be/internal/dto"
	"swimcoach-be/pkg/store"
)

type RagMapper struct{}

func NewRagMapper() *RagMapper {
	return &RagMapper{}
}

func (m *RagMapper) ToSourceDTOs(passages []store.ScoredPassage) []dto.SourceDTO {
	out := make([]dto.SourceDTO, len(passages))
	for i, sp := range passages {
		out[i] = dto.SourceDTO{
			Id:       sp.Passage.ID,
			Text:     sp.Passage.Text,
			SourceId: sp.Passage.SourceID,
			Metadata: sp.Passage.Metadata,
			Score:    sp.Score,
		}
	}
	return out
}

func (m *RagMapper) ToSessionResponse(snap store.SessionSnapshot, limit int) *dto.SessionResponse {
	turns := make([]dto.TurnDTO, len(snap.Turns))
	for i, t := range snap.Turns {
		var sources []dto.SourceDTO
		if len(t.Sources) > 0 {
			sources = make([]dto.SourceDTO, len(t.Sources))
			for j, ref := range t.Sources {
				sources[j] = dto.SourceDTO{Id: ref.ID, Text: ref.Text, SourceId: ref.SourceID, Score: ref.Score}
			}
		}
		turns[i] = dto.TurnDTO{
			Speaker:  string(t.Speaker),
			Text:     t.Text,
			Sources:  sources,
			Occurred: t.Occurred,
		}
	}

	entries := snap.RecentEntries
	if entries == nil {
		entries = []string{}
	}
	return &dto.SessionResponse{
		SessionId:     snap.ID,
		Limit:         limit,
		Turns:         turns,
		RecentEntries: entries,
	}
}

func (m *RagMapper) ToSituationalContextResponse(sc store.SituationalContext) dto.SituationalContextResponse {
	return dto.SituationalContextResponse{
		CurrentDate:    sc.CurrentDate,
		LocationName:   sc.LocationName,
		WeatherSummary: sc.WeatherSummary,
	}
}
