package adapter

// TokenCounter estimates how many prompt tokens a text costs for a given
// model. Implementations are best-effort; exact counts are only known to
// the provider.
type TokenCounter interface {
	Count(model, text string) int
}
