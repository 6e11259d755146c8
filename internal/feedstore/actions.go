package feedstore

// Журнал хранит не больше этого числа последних записей,
// старые вытесняются при добавлении.
const maxLogEntries = 1000

// LogEntry — запись журнала действий в users_log.json.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Action    string `json:"action"`
	Details   string `json:"details,omitempty"`
}

// Stats — сводка по журналу действий для админской команды.
type Stats struct {
	TotalActions int
	UniqueUsers  int
	ActionsCount map[string]int
}

// AppendAction добавляет запись в журнал. Пустой Timestamp заполняется
// временем записи. Возвращается сохранённая запись.
func (s *Store) AppendAction(entry LogEntry) (LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = nowISO()
	}

	entries, err := s.loadLogLocked()
	if err != nil {
		return LogEntry{}, err
	}
	entries = append(entries, entry)
	if len(entries) > maxLogEntries {
		entries = entries[len(entries)-maxLogEntries:]
	}
	if err = s.writeJSON(usersLogFile, entries); err != nil {
		return LogEntry{}, err
	}
	return entry, nil
}

// Stats считает сводку по текущему окну журнала: всего действий,
// уникальных пользователей и счётчики по названиям действий.
func (s *Store) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLogLocked()
	if err != nil {
		return Stats{}, err
	}

	users := make(map[int64]struct{})
	counts := make(map[string]int)
	for _, entry := range entries {
		users[entry.UserID] = struct{}{}
		counts[entry.Action]++
	}
	return Stats{
		TotalActions: len(entries),
		UniqueUsers:  len(users),
		ActionsCount: counts,
	}, nil
}

func (s *Store) loadLogLocked() ([]LogEntry, error) {
	var entries []LogEntry
	if _, err := s.readJSON(usersLogFile, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
