package ocr

import "context"

// ClearPrefix deletes every object in bucket whose name starts with prefix.
// Succeeds with no side effect when nothing matches. Deletion is irreversible;
// storage errors are passed through unchanged.
func (s *Service) ClearPrefix(ctx context.Context, bucket, prefix string) error {
	names, err := s.store.List(ctx, bucket, prefix)
	if err != nil {
		return err
	}

	for _, name := range names {
		if err := s.store.Delete(ctx, bucket, name); err != nil {
			return err
		}
	}

	if len(names) > 0 {
		s.log.Debug().
			Str("bucket", bucket).
			Str("prefix", prefix).
			Int("deleted", len(names)).
			Msg("Cleared output prefix")
	}

	return nil
}
