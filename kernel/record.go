package kernel

import "go.uber.org/zap"

type record struct {
	data    any
	holders int
	created bool
	changed notifier
}

func (s *System) recordLocked(name string) *record {
	r := s.records[name]
	if r == nil {
		r = &record{}
		s.records[name] = r
	}
	return r
}

// RecordCreate publishes data under name. Publishing a name twice crashes.
func RecordCreate(name string, data any) {
	s := current()
	s.recMu.Lock()
	r := s.recordLocked(name)
	if r.created {
		s.recMu.Unlock()
		Crash("record already exists: " + name)
	}
	r.data = data
	r.created = true
	r.changed.Broadcast()
	s.recMu.Unlock()
	Logger().Debug("record created", zap.String("record", name))
}

// RecordDestroy removes name. It fails while any holder has it open.
func RecordDestroy(name string) bool {
	s := current()
	s.recMu.Lock()
	defer s.recMu.Unlock()
	r := s.records[name]
	if r == nil || !r.created || r.holders > 0 {
		return false
	}
	delete(s.records, name)
	Logger().Debug("record destroyed", zap.String("record", name))
	return true
}

// RecordExists reports whether name has been created.
func RecordExists(name string) bool {
	s := current()
	s.recMu.Lock()
	defer s.recMu.Unlock()
	r := s.records[name]
	return r != nil && r.created
}

// RecordOpen returns the data published under name, blocking until it is
// created. Every open must be paired with RecordClose.
func RecordOpen(name string) any {
	s := current()
	s.recMu.Lock()
	r := s.recordLocked(name)
	r.holders++
	for !r.created {
		ch := r.changed.C()
		s.recMu.Unlock()
		s.schedulePoint()
		<-ch
		s.recMu.Lock()
	}
	data := r.data
	s.recMu.Unlock()
	return data
}

// RecordClose releases one holder of name.
func RecordClose(name string) {
	s := current()
	s.recMu.Lock()
	r := s.records[name]
	if r == nil || r.holders == 0 {
		s.recMu.Unlock()
		Crash("record closed without open: " + name)
	}
	r.holders--
	s.recMu.Unlock()
}

// RecordHolders returns the number of open holders of name.
func RecordHolders(name string) int {
	s := current()
	s.recMu.Lock()
	defer s.recMu.Unlock()
	if r := s.records[name]; r != nil {
		return r.holders
	}
	return 0
}
