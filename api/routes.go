package api

import "call-filter/routing"

// Routes is the root URL table. admin/ and audio/ are sub-tables with their
// own routes; admin/ is mounted exactly once.
func (s *Server) Routes() *routing.Table {
	table := &routing.Table{}

	table.Include("admin/", s.AdminRoutes())
	table.POST("incoming-call/", s.VerifySignature(s.HandleIncomingCall()), "incoming_call")
	table.POST("recording-callback/", s.VerifySignature(s.HandleRecordingCallback()), "recording_callback")
	table.Include("audio/", s.AudioRoutes())

	return table
}

func (s *Server) AdminRoutes() *routing.Table {
	table := &routing.Table{}

	table.POST("login/", s.HandleLogin(), "admin:login")
	table.GET("", s.Validate(s.HandleAdminIndex()), "admin:index")
	table.GET("calls/", s.Validate(s.HandleAdminListCalls()), "admin:calls")
	table.GET("calls/:id/", s.Validate(s.HandleAdminGetCall()), "admin:call")
	table.PUT("calls/:id/label/", s.Validate(s.HandleLabelCall()), "admin:label")
	table.DELETE("calls/:id/", s.Validate(s.HandleDeleteCall()), "admin:delete")
	table.POST("calls/:id/reprocess/", s.Validate(s.HandleReprocessCall()), "admin:reprocess")

	return table
}

func (s *Server) AudioRoutes() *routing.Table {
	table := &routing.Table{}

	table.POST("upload/", s.HandleUpload(), "audio:upload")
	table.GET("calls/", s.HandleListCalls(), "audio:calls")
	table.GET("calls/:id/", s.HandleGetCall(), "audio:call")
	table.GET("statistics/", s.HandleStatistics(), "audio:statistics")
	table.GET("stream/", s.HandleStream(), "audio:stream")

	return table
}
