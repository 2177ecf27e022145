package botmgr

import (
	"github.com/disgoorg/disgo/discord"

	"github.com/goassist-bot/goassist/assistbot/database/models"
)

// Commands is the fixed per-guild command set every managed bot registers.
var Commands = []discord.ApplicationCommandCreate{
	discord.SlashCommandCreate{
		Name:        "help",
		Description: "Show what this support bot can do",
	},
	discord.SlashCommandCreate{
		Name:        "support",
		Description: "Ask the support bot a question",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionString{
				Name:        "question",
				Description: "Your support question",
				Required:    true,
			},
		},
	},
	discord.SlashCommandCreate{
		Name:        "review",
		Description: "Rate the support you received",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionInt{
				Name:        "rating",
				Description: "Rating from 1 to 5",
				Required:    true,
				MinValue:    intPtr(models.MinRating),
				MaxValue:    intPtr(models.MaxRating),
			},
			discord.ApplicationCommandOptionString{
				Name:        "feedback",
				Description: "Optional written feedback",
				Required:    false,
			},
		},
	},
}

func intPtr(v int) *int {
	return &v
}
