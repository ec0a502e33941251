package config

import "os"

// Keys holds provider credentials read from the process environment.
// Missing keys are not validated here, the respective client
// reports the authentication failure.
type Keys struct {
	Upstage  string
	Pinecone string
	Qdrant   string
	OpenAI   string
	Cohere   string
	Gemini   string
	Jina     string
}

func KeysFromEnv() Keys {
	return Keys{
		Upstage:  os.Getenv("UPSTAGE_API_KEY"),
		Pinecone: os.Getenv("PINECONE_API_KEY"),
		Qdrant:   os.Getenv("QDRANT_API_KEY"),
		OpenAI:   os.Getenv("OPENAI_API_KEY"),
		Cohere:   os.Getenv("COHERE_API_KEY"),
		Gemini:   os.Getenv("GEMINI_API_KEY"),
		Jina:     os.Getenv("JINA_API_KEY"),
	}
}

// ForProvider returns the API key of the named provider.
func (k Keys) ForProvider(name string) string {
	switch name {
	case "upstage":
		return k.Upstage
	case "pinecone":
		return k.Pinecone
	case "qdrant":
		return k.Qdrant
	case "openai":
		return k.OpenAI
	case "cohere":
		return k.Cohere
	case "gemini":
		return k.Gemini
	case "jina":
		return k.Jina
	default:
		return ""
	}
}
