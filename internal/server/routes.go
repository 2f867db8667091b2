package server

import (
	"errors"
	"strings"
	"time"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/v78582514-blip/notes-app-clean/internal/store"
)

// unlockTTL bounds how long an unlock token opens a private group.
const unlockTTL = 15 * time.Minute

func (s *FiberServer) RegisterRoutes() {
	s.App.Get("/health", s.health)
	s.App.Get("/grid", s.grid)

	s.App.Post("/notes", s.createNote)
	s.App.Get("/notes", s.listNotes)
	s.App.Get("/notes/:id", s.getNote)
	s.App.Put("/notes/:id", s.updateNote)
	s.App.Delete("/notes/:id", s.deleteNote)
	s.App.Post("/notes/:id/link", s.linkNotes)
	s.App.Post("/notes/:id/ungroup", s.ungroupNote)
	s.App.Get("/notes/:id/export", s.exportNote)
	s.App.Post("/notes/:id/share", s.shareNote)

	s.App.Post("/groups", s.createGroup)
	s.App.Get("/groups", s.listGroups)
	s.App.Get("/groups/:id", s.getGroup)
	s.App.Put("/groups/:id", s.updateGroup)
	s.App.Delete("/groups/:id", s.deleteGroup)
	s.App.Post("/groups/:id/notes", s.addNoteToGroup)
	s.App.Get("/groups/:id/notes", s.privateGroupGate(), s.groupNotes)
	s.App.Post("/groups/:id/password", s.setPassword)
	s.App.Delete("/groups/:id/password", s.clearPassword)
	s.App.Post("/groups/:id/unlock", s.unlockGroup)
	s.App.Get("/groups/:id/export", s.privateGroupGate(), s.exportGroup)
	s.App.Post("/groups/:id/share", s.privateGroupGate(), s.shareGroup)

	s.App.Post("/import/note", s.importNote)
	s.App.Post("/import/group", s.importGroup)
	s.App.Post("/reload", s.reload)

	s.App.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.App.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		s.hub.Register(conn)
		s.hub.HandleConnection(conn)
	}))
}

// privateGroupGate enforces an unlock token on routes addressing a
// private group. Public and unknown groups pass through; the handler
// deals with those.
func (s *FiberServer) privateGroupGate() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: s.jwtSecret},
		Filter: func(c *fiber.Ctx) bool {
			g, err := s.store.Group(c.Params("id"))
			return err != nil || !g.Private
		},
	})
}

// unlockedFor reports whether the request carries an unlock token for
// this group. Always true for public groups.
func unlockedFor(c *fiber.Ctx, g store.Group) bool {
	if !g.Private {
		return true
	}
	tok, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	gid, _ := claims["gid"].(string)
	return gid == g.ID
}

func (s *FiberServer) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":     "ok",
		"save_error": s.store.SaveErr(),
		"load_error": s.store.LoadErr(),
	})
}

func (s *FiberServer) grid(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"items": s.store.Grid(c.Query("q"))})
}

func (s *FiberServer) createNote(c *fiber.Ctx) error {
	var req store.NewNote
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Text) == "" && strings.TrimSpace(req.Title) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title or text required"})
	}
	n := s.store.AddNote(c.Context(), req)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"note": n})
}

func (s *FiberServer) listNotes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"notes": s.store.Notes()})
}

func (s *FiberServer) getNote(c *fiber.Ctx) error {
	id, ok := noteID(c)
	if !ok {
		return nil
	}
	n, err := s.store.Note(id)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "note not found"})
	}
	return c.JSON(fiber.Map{"note": n})
}

func (s *FiberServer) updateNote(c *fiber.Ctx) error {
	id, ok := noteID(c)
	if !ok {
		return nil
	}
	var patch store.NotePatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	n, err := s.store.UpdateNote(c.Context(), id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "note not found"})
	}
	return c.JSON(fiber.Map{"note": n})
}

func (s *FiberServer) deleteNote(c *fiber.Ctx) error {
	id, ok := noteID(c)
	if !ok {
		return nil
	}
	if err := s.store.DeleteNote(c.Context(), id); errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "note not found"})
	}
	return c.JSON(fiber.Map{"message": "note deleted"})
}

func (s *FiberServer) linkNotes(c *fiber.Ctx) error {
	id, ok := noteID(c)
	if !ok {
		return nil
	}
	var req struct {
		TargetID string `json:"target_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	g, err := s.store.LinkNotes(c.Context(), id, req.TargetID)
	switch {
	case errors.Is(err, store.ErrSelfLink):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "note not found"})
	}
	return c.JSON(fiber.Map{"group": g})
}

func (s *FiberServer) ungroupNote(c *fiber.Ctx) error {
	id, ok := noteID(c)
	if !ok {
		return nil
	}
	if err := s.store.RemoveFromGroup(c.Context(), id); errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "note not found"})
	}
	return c.JSON(fiber.Map{"message": "note removed from group"})
}

func (s *FiberServer) exportNote(c *fiber.Ctx) error {
	id, ok := noteID(c)
	if !ok {
		return nil
	}
	n, err := s.store.ExportNote(id)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "note not found"})
	}
	return c.JSON(n)
}

func (s *FiberServer) shareNote(c *fiber.Ctx) error {
	id, ok := noteID(c)
	if !ok {
		return nil
	}
	text, err := s.store.ShareNote(id)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "note not found"})
	}
	if err := s.sink.Share(c.Context(), text); err != nil {
		s.log.Warn().Err(err).Msg("share sink failed")
	}
	return c.JSON(fiber.Map{"text": text})
}

func (s *FiberServer) createGroup(c *fiber.Ctx) error {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	g := s.store.AddGroup(c.Context(), req.Title)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"group": g})
}

func (s *FiberServer) listGroups(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"groups": s.store.Groups()})
}

func (s *FiberServer) getGroup(c *fiber.Ctx) error {
	id, ok := groupID(c)
	if !ok {
		return nil
	}
	g, err := s.store.Group(id)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "group not found"})
	}
	return c.JSON(fiber.Map{"group": g})
}

func (s *FiberServer) updateGroup(c *fiber.Ctx) error {
	id, ok := groupID(c)
	if !ok {
		return nil
	}
	var patch store.GroupPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	g, err := s.store.UpdateGroup(c.Context(), id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "group not found"})
	}
	return c.JSON(fiber.Map{"group": g})
}

func (s *FiberServer) deleteGroup(c *fiber.Ctx) error {
	id, ok := groupID(c)
	if !ok {
		return nil
	}
	if err := s.store.DeleteGroup(c.Context(), id); errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "group not found"})
	}
	return c.JSON(fiber.Map{"message": "group deleted"})
}

func (s *FiberServer) addNoteToGroup(c *fiber.Ctx) error {
	id, ok := groupID(c)
	if !ok {
		return nil
	}
	var req struct {
		NoteID string `json:"note_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := s.store.AddToGroup(c.Context(), req.NoteID, id); errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "note or group not found"})
	}
	return c.JSON(fiber.Map{"message": "note added to group"})
}

func (s *FiberServer) groupNotes(c *fiber.Ctx) error {
	id, ok := groupID(c)
	if !ok {
		return nil
	}
	g, err := s.store.Group(id)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "group not found"})
	}
	if !unlockedFor(c, g) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "group is locked"})
	}
	return c.JSON(fiber.Map{"notes": s.store.NotesInGroup(id)})
}

func (s *FiberServer) setPassword(c *fiber.Ctx) error {
	id, ok := groupID(c)
	if !ok {
		return nil
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	err := s.store.SetPassword(c.Context(), id, req.Password)
	switch {
	case errors.Is(err, store.ErrPasswordTooShort):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "group not found"})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "group locked"})
}

func (s *FiberServer) clearPassword(c *fiber.Ctx) error {
	id, ok := groupID(c)
	if !ok {
		return nil
	}
	if err := s.store.ClearPassword(c.Context(), id); errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "group not found"})
	}
	return c.JSON(fiber.Map{"message": "group unlocked"})
}

func (s *FiberServer) unlockGroup(c *fiber.Ctx) error {
	id, ok := groupID(c)
	if !ok {
		return nil
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	ok, err := s.store.VerifyPassword(id, req.Password)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "group not found"})
	}
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "wrong password"})
	}

	claims := jwt.MapClaims{
		"gid": id,
		"exp": time.Now().Add(unlockTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	return c.JSON(fiber.Map{"token": t})
}

func (s *FiberServer) exportGroup(c *fiber.Ctx) error {
	id, ok := groupID(c)
	if !ok {
		return nil
	}
	g, err := s.store.Group(id)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "group not found"})
	}
	if !unlockedFor(c, g) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "group is locked"})
	}
	exp, err := s.store.ExportGroup(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(exp)
}

func (s *FiberServer) shareGroup(c *fiber.Ctx) error {
	id, ok := groupID(c)
	if !ok {
		return nil
	}
	g, err := s.store.Group(id)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "group not found"})
	}
	if !unlockedFor(c, g) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "group is locked"})
	}
	text, err := s.store.ShareGroup(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.sink.Share(c.Context(), text); err != nil {
		s.log.Warn().Err(err).Msg("share sink failed")
	}
	return c.JSON(fiber.Map{"text": text})
}

func (s *FiberServer) importNote(c *fiber.Ctx) error {
	var n store.Note
	if err := c.BodyParser(&n); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	imported := s.store.ImportNote(c.Context(), n)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"note": imported})
}

func (s *FiberServer) importGroup(c *fiber.Ctx) error {
	var exp store.GroupExport
	if err := c.BodyParser(&exp); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	g := s.store.ImportGroup(c.Context(), exp)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"group": g, "notes": s.store.NotesInGroup(g.ID)})
}

// reload re-runs the load from storage; this is the retry path after a
// load failure.
func (s *FiberServer) reload(c *fiber.Ctx) error {
	_ = s.store.Load(c.Context())
	return c.JSON(fiber.Map{"load_error": s.store.LoadErr()})
}

// noteID and groupID validate the :id path parameter. On a malformed
// id the 400 response is already written and ok is false.
func noteID(c *fiber.Ctx) (string, bool) {
	return parseID(c, "invalid note id")
}

func groupID(c *fiber.Ctx) (string, bool) {
	return parseID(c, "invalid group id")
}

func parseID(c *fiber.Ctx, msg string) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
		return "", false
	}
	return id, true
}
