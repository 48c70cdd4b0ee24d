package storage

// PreferenceStore keeps small user preferences (theme, last tab, sign-in
// flag) between runs. Keys and values are plain strings.
type PreferenceStore interface {
	Init() error
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}
