package negotiation

import (
	"errors"
	"testing"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/core/coretest"
	"github.com/dkeye/Roulette/internal/domain"
	"github.com/dkeye/Roulette/internal/media"
	"github.com/pion/webrtc/v4"
)

func newTracks(t *testing.T, stopped *int) *media.Tracks {
	t.Helper()
	audio, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "local")
	if err != nil {
		t.Fatalf("NewTrackLocalStaticSample: %v", err)
	}
	video, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "local")
	if err != nil {
		t.Fatalf("NewTrackLocalStaticSample: %v", err)
	}
	return media.NewTracks(audio, video, func() { *stopped++ })
}

func testOptions(room string, tracks *media.Tracks) (Options, *coretest.FakeFactory, *coretest.FakeSignal) {
	peers := &coretest.FakeFactory{}
	sig := &coretest.FakeSignal{}
	return Options{
		Token:  1,
		RoomID: domain.RoomID(room),
		Peers:  peers,
		Tracks: tracks,
		Signal: sig,
	}, peers, sig
}

func offer() webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "remote-offer"}
}

func answer() webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "remote-answer"}
}

func TestOffererSendsOfferOnce(t *testing.T) {
	opts, peers, sig := testOptions("r1", nil)
	s, err := NewOfferer(opts)
	if err != nil {
		t.Fatalf("NewOfferer: %v", err)
	}
	pc := peers.Last()

	pc.FireNegotiationNeeded()
	pc.FireNegotiationNeeded()

	if got := pc.Offers(); got != 1 {
		t.Fatalf("offers created = %d, want 1", got)
	}
	offers := sig.OfType(core.SignalOffer)
	if len(offers) != 1 {
		t.Fatalf("offers sent = %d, want 1", len(offers))
	}
	if offers[0].RoomID != "r1" || offers[0].SDP == nil || offers[0].SDP.SDP != "fake-offer-1" {
		t.Fatalf("offer = %+v, want room r1 with fake-offer-1", offers[0])
	}
	if local := pc.LocalDescription(); local == nil || local.SDP != "fake-offer-1" {
		t.Fatalf("local description = %v, want fake-offer-1", local)
	}
	if !s.Offered() {
		t.Fatal("Offered = false, want true")
	}
	if s.Complete() {
		t.Fatal("Complete before answer")
	}
}

func TestOffererReceiveOnlyTransceivers(t *testing.T) {
	opts, peers, _ := testOptions("r1", nil)
	if _, err := NewOfferer(opts); err != nil {
		t.Fatalf("NewOfferer: %v", err)
	}
	kinds := peers.Last().RecvOnly()
	if len(kinds) != 2 || kinds[0] != webrtc.RTPCodecTypeAudio || kinds[1] != webrtc.RTPCodecTypeVideo {
		t.Fatalf("recvonly = %v, want [audio video]", kinds)
	}

	var stopped int
	opts, peers, _ = testOptions("r2", newTracks(t, &stopped))
	if _, err := NewOfferer(opts); err != nil {
		t.Fatalf("NewOfferer: %v", err)
	}
	if kinds := peers.Last().RecvOnly(); len(kinds) != 0 {
		t.Fatalf("recvonly = %v, want none when both kinds are sent", kinds)
	}
	if got := len(peers.Last().Tracks()); got != 2 {
		t.Fatalf("tracks attached = %d, want 2", got)
	}
}

func TestOffererCandidates(t *testing.T) {
	opts, peers, sig := testOptions("r1", nil)
	s, err := NewOfferer(opts)
	if err != nil {
		t.Fatalf("NewOfferer: %v", err)
	}
	pc := peers.Last()
	pc.FireNegotiationNeeded()

	pc.EmitCandidate(coretest.Candidate("local-1"))
	sent := sig.OfType(core.SignalICECandidate)
	if len(sent) != 1 || sent[0].Tag != domain.TagSender || sent[0].Candidate.Candidate != "local-1" {
		t.Fatalf("sent candidates = %+v, want one tagged sender", sent)
	}

	if err := s.HandleCandidate(domain.TagSender, coretest.Candidate("own")); !errors.Is(err, ErrForeignTag) {
		t.Fatalf("HandleCandidate(sender) = %v, want ErrForeignTag", err)
	}

	for _, c := range []string{"early-1", "early-2"} {
		if err := s.HandleCandidate(domain.TagReceiver, coretest.Candidate(c)); err != nil {
			t.Fatalf("HandleCandidate(%s): %v", c, err)
		}
	}
	if got := s.Pending(); got != 2 {
		t.Fatalf("Pending = %d, want 2", got)
	}
	if got := len(pc.Candidates()); got != 0 {
		t.Fatalf("applied before answer = %d, want 0", got)
	}

	if err := s.HandleAnswer(answer()); err != nil {
		t.Fatalf("HandleAnswer: %v", err)
	}
	if !s.Complete() {
		t.Fatal("Complete = false after answer")
	}
	if err := s.HandleCandidate(domain.TagReceiver, coretest.Candidate("late")); err != nil {
		t.Fatalf("HandleCandidate(late): %v", err)
	}

	applied := pc.Candidates()
	want := []string{"early-1", "early-2", "late"}
	if len(applied) != len(want) {
		t.Fatalf("applied = %d candidates, want %d", len(applied), len(want))
	}
	for i, c := range applied {
		if c.Candidate != want[i] {
			t.Fatalf("applied[%d] = %q, want %q", i, c.Candidate, want[i])
		}
	}
	if s.Pending() != 0 {
		t.Fatalf("Pending = %d after flush, want 0", s.Pending())
	}
}

func TestOffererSecondAnswer(t *testing.T) {
	opts, _, _ := testOptions("r1", nil)
	s, err := NewOfferer(opts)
	if err != nil {
		t.Fatalf("NewOfferer: %v", err)
	}
	if err := s.HandleAnswer(answer()); err != nil {
		t.Fatalf("HandleAnswer: %v", err)
	}
	if err := s.HandleAnswer(answer()); !errors.Is(err, ErrComplete) {
		t.Fatalf("second HandleAnswer = %v, want ErrComplete", err)
	}
}

func TestOffererRejectsOfferAsAnswer(t *testing.T) {
	opts, peers, _ := testOptions("r1", nil)
	s, err := NewOfferer(opts)
	if err != nil {
		t.Fatalf("NewOfferer: %v", err)
	}
	if err := s.HandleAnswer(offer()); !errors.Is(err, ErrWrongRole) {
		t.Fatalf("HandleAnswer(offer) = %v, want ErrWrongRole", err)
	}
	if remote := peers.Last().RemoteDescription(); remote != nil {
		t.Fatalf("remote description = %v, want none from an offer", remote)
	}
}

func TestAnswererAnswersImmediately(t *testing.T) {
	opts, peers, sig := testOptions("r2", nil)
	s, err := NewAnswerer(opts, offer())
	if err != nil {
		t.Fatalf("NewAnswerer: %v", err)
	}
	pc := peers.Last()

	if remote := pc.RemoteDescription(); remote == nil || remote.SDP != "remote-offer" {
		t.Fatalf("remote description = %v, want remote-offer", remote)
	}
	answers := sig.OfType(core.SignalAnswer)
	if len(answers) != 1 || answers[0].RoomID != "r2" || answers[0].SDP.SDP != "fake-answer-1" {
		t.Fatalf("answers = %+v, want one for r2", answers)
	}
	if !s.Complete() {
		t.Fatal("Complete = false after answer sent")
	}
	if s.Role() != domain.RoleAnswerer {
		t.Fatalf("Role = %v, want answerer", s.Role())
	}
	if got := len(pc.RecvOnly()); got != 0 {
		t.Fatalf("answerer added %d recvonly transceivers, want 0", got)
	}
}

func TestAnswererNeverOffers(t *testing.T) {
	opts, peers, sig := testOptions("r2", nil)
	if _, err := NewAnswerer(opts, offer()); err != nil {
		t.Fatalf("NewAnswerer: %v", err)
	}
	pc := peers.Last()
	pc.FireNegotiationNeeded()

	if got := pc.Offers(); got != 0 {
		t.Fatalf("answerer created %d offers, want 0", got)
	}
	if got := len(sig.OfType(core.SignalOffer)); got != 0 {
		t.Fatalf("answerer sent %d offers, want 0", got)
	}
}

func TestAnswererCandidates(t *testing.T) {
	opts, peers, sig := testOptions("r2", nil)
	s, err := NewAnswerer(opts, offer())
	if err != nil {
		t.Fatalf("NewAnswerer: %v", err)
	}
	pc := peers.Last()

	if err := s.HandleCandidate(domain.TagReceiver, coretest.Candidate("x")); !errors.Is(err, ErrForeignTag) {
		t.Fatalf("HandleCandidate(receiver) = %v, want ErrForeignTag", err)
	}
	if err := s.HandleCandidate(domain.TagSender, coretest.Candidate("remote-1")); err != nil {
		t.Fatalf("HandleCandidate(sender): %v", err)
	}
	if got := len(pc.Candidates()); got != 1 {
		t.Fatalf("applied = %d, want 1", got)
	}

	pc.EmitCandidate(coretest.Candidate("local-1"))
	sent := sig.OfType(core.SignalICECandidate)
	if len(sent) != 1 || sent[0].Tag != domain.TagReceiver {
		t.Fatalf("sent candidates = %+v, want one tagged receiver", sent)
	}

	if err := s.HandleAnswer(answer()); !errors.Is(err, ErrWrongRole) {
		t.Fatalf("HandleAnswer on answerer = %v, want ErrWrongRole", err)
	}
}

func TestAnswererRemoteFailureClosesPeer(t *testing.T) {
	opts, peers, sig := testOptions("r2", nil)
	boom := errors.New("bad sdp")
	opts.Peers = failingRemote{peers, boom}

	if _, err := NewAnswerer(opts, offer()); !errors.Is(err, boom) {
		t.Fatalf("NewAnswerer = %v, want %v", err, boom)
	}
	if !peers.Last().Closed() {
		t.Fatal("peer connection left open")
	}
	if got := len(sig.OfType(core.SignalAnswer)); got != 0 {
		t.Fatalf("answers sent = %d, want 0", got)
	}
}

type failingRemote struct {
	*coretest.FakeFactory
	err error
}

func (f failingRemote) NewPeerConnection() (core.PeerConnection, error) {
	pc, err := f.FakeFactory.NewPeerConnection()
	if err != nil {
		return nil, err
	}
	pc.(*coretest.FakePeer).RemoteErr = f.err
	return pc, nil
}

func TestFactoryError(t *testing.T) {
	opts, peers, _ := testOptions("r1", nil)
	peers.Err = errors.New("no ice")
	if _, err := NewOfferer(opts); err == nil {
		t.Fatal("NewOfferer succeeded with failing factory")
	}
}

func TestCloseKeepsLocalTracks(t *testing.T) {
	var stopped int
	tracks := newTracks(t, &stopped)

	opts, peers, _ := testOptions("r1", tracks)
	s, err := NewOfferer(opts)
	if err != nil {
		t.Fatalf("NewOfferer: %v", err)
	}
	if got := tracks.Attached(); got != 1 {
		t.Fatalf("Attached = %d, want 1", got)
	}

	s.Close()
	s.Close()
	if !peers.Last().Closed() {
		t.Fatal("peer connection not closed")
	}
	if stopped != 0 || tracks.Released() {
		t.Fatalf("local tracks stopped on session close (stopped=%d)", stopped)
	}
	if got := tracks.Attached(); got != 0 {
		t.Fatalf("Attached = %d after close, want 0", got)
	}

	opts.Token = 2
	next, err := NewAnswerer(opts, offer())
	if err != nil {
		t.Fatalf("NewAnswerer reusing tracks: %v", err)
	}
	if got := len(peers.Last().Tracks()); got != 2 {
		t.Fatalf("next session tracks = %d, want 2", got)
	}
	next.Close()
}

func TestClosedSessionIgnoresCallbacks(t *testing.T) {
	opts, peers, sig := testOptions("r1", nil)
	var tracks, states int
	opts.OnTrack = func(core.RemoteTrack) { tracks++ }
	opts.OnState = func(webrtc.PeerConnectionState) { states++ }

	s, err := NewOfferer(opts)
	if err != nil {
		t.Fatalf("NewOfferer: %v", err)
	}
	pc := peers.Last()

	remote := coretest.NewFakeTrack("v", "remote", webrtc.RTPCodecTypeVideo)
	pc.EmitTrack(remote)
	pc.EmitState(webrtc.PeerConnectionStateConnected)
	if tracks != 1 || states != 1 {
		t.Fatalf("tracks, states = %d, %d, want 1, 1", tracks, states)
	}

	s.Close()
	pc.EmitTrack(remote)
	pc.EmitState(webrtc.PeerConnectionStateClosed)
	pc.EmitCandidate(coretest.Candidate("late"))
	pc.FireNegotiationNeeded()

	if tracks != 1 || states != 1 {
		t.Fatalf("callbacks after close: tracks, states = %d, %d", tracks, states)
	}
	if len(sig.Sent()) != 0 {
		t.Fatalf("signals after close = %+v, want none", sig.Sent())
	}
	if err := s.HandleCandidate(domain.TagReceiver, coretest.Candidate("x")); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("HandleCandidate after close = %v, want ErrSessionClosed", err)
	}
}

func TestPostIsUsedForCallbacks(t *testing.T) {
	opts, peers, sig := testOptions("r1", nil)
	var queued []func()
	opts.Post = func(fn func()) { queued = append(queued, fn) }

	if _, err := NewOfferer(opts); err != nil {
		t.Fatalf("NewOfferer: %v", err)
	}
	peers.Last().FireNegotiationNeeded()
	if len(sig.Sent()) != 0 {
		t.Fatal("offer sent outside the owner's loop")
	}
	if len(queued) != 1 {
		t.Fatalf("queued = %d, want 1", len(queued))
	}
	queued[0]()
	if got := len(sig.OfType(core.SignalOffer)); got != 1 {
		t.Fatalf("offers = %d, want 1", got)
	}
}
